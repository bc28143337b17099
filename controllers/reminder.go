package controllers

import (
	"context"
	"net/http"
	"slices"

	"agenda-backend/models"
	"agenda-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TemplateStore interface {
	ListReminderTemplates(ctx context.Context, companyID uuid.UUID) ([]models.ReminderTemplate, error)
	SaveReminderTemplate(ctx context.Context, t *models.ReminderTemplate) error
}

// SaveReminderTemplateInput defines the expected JSON structure
type SaveReminderTemplateInput struct {
	Message  string `json:"message" binding:"required"`
	IsActive *bool  `json:"isActive"`
}

type ReminderController struct {
	store TemplateStore
}

func NewReminderController(store TemplateStore) *ReminderController {
	return &ReminderController{store: store}
}

// GetReminderTemplates retrieves all reminder templates for the company
func (rc *ReminderController) GetReminderTemplates(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	templates, err := rc.store.ListReminderTemplates(c.Request.Context(), companyID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if templates == nil {
		templates = []models.ReminderTemplate{}
	}
	c.JSON(http.StatusOK, templates)
}

// SaveReminderTemplate creates or replaces the template of one type
func (rc *ReminderController) SaveReminderTemplate(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	kind := c.Param("type")
	if !slices.Contains(models.ReminderKinds, kind) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid template type")
		return
	}

	var input SaveReminderTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	template := models.ReminderTemplate{
		CompanyID: companyID,
		Type:      kind,
		Message:   input.Message,
		IsActive:  input.IsActive == nil || *input.IsActive,
	}
	if err := rc.store.SaveReminderTemplate(c.Request.Context(), &template); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}
