package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/availability"
	"agenda-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ServiceLister interface {
	ActiveServices(ctx context.Context, companyID uuid.UUID) ([]models.Service, error)
}

type SlotFinder interface {
	SlotsFor(ctx context.Context, companyID, serviceID uuid.UUID, date time.Time) ([]availability.Slot, error)
	CalendarFor(ctx context.Context, companyID, serviceID uuid.UUID, daysAhead int) ([]availability.Day, error)
}

type AvailabilityController struct {
	services ServiceLister
	slots    SlotFinder
}

func NewAvailabilityController(services ServiceLister, slots SlotFinder) *AvailabilityController {
	return &AvailabilityController{services: services, slots: slots}
}

// Services lists the company's bookable services.
func (ac *AvailabilityController) Services(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	services, err := ac.services.ActiveServices(c.Request.Context(), companyID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if services == nil {
		services = []models.Service{}
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// Slots lists one day of slots: GET /slots?serviceId=&date=YYYY-MM-DD.
func (ac *AvailabilityController) Slots(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(c.Query("serviceId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "serviceId is required")
		return
	}
	date, err := utils.ParseDate(c.Query("date"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	slots, err := ac.slots.SlotsFor(c.Request.Context(), companyID, serviceID, date)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date.Format(utils.DateFormat), "slots": slots})
}

// Calendar lays out the next days: GET /calendar?serviceId=&daysAhead=.
func (ac *AvailabilityController) Calendar(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(c.Query("serviceId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "serviceId is required")
		return
	}
	daysAhead := availability.DefaultDaysAhead
	if raw := c.Query("daysAhead"); raw != "" {
		daysAhead, err = strconv.Atoi(raw)
		if err != nil || daysAhead < 1 {
			utils.RespondWithError(c, http.StatusBadRequest, "daysAhead must be a positive number")
			return
		}
	}

	days, err := ac.slots.CalendarFor(c.Request.Context(), companyID, serviceID, daysAhead)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calendar": days})
}
