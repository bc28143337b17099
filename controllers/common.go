package controllers

import (
	"errors"
	"net/http"

	"agenda-backend/models"
	"agenda-backend/services/booking"
	"agenda-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// tenantID reads the tenant set by the auth middleware. It answers the
// request itself when the id is missing.
func tenantID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("companyId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "Company ID not found in context")
		return uuid.Nil, false
	}
	s, _ := raw.(string)
	id, err := uuid.Parse(s)
	if err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid company ID format")
		return uuid.Nil, false
	}
	return id, true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// respondDomainError maps booking and store errors onto HTTP statuses.
func respondDomainError(c *gin.Context, err error) {
	var conflict *booking.ConflictError
	switch {
	case errors.As(err, &conflict):
		utils.RespondWithDetails(c, http.StatusConflict, conflict.Error(), gin.H{"conflicts": conflict.Conflicts})
	case errors.Is(err, models.ErrConflict):
		utils.RespondWithError(c, http.StatusConflict, "Time slot already taken")
	case errors.Is(err, models.ErrNotFound):
		utils.RespondWithError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, booking.ErrValidation):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrConfiguration):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		utils.GetLogger().Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal Server Error")
	}
}
