package controllers

import (
	"context"
	"net/http"

	"agenda-backend/models"
	"agenda-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ServiceStore interface {
	ListServices(ctx context.Context, companyID uuid.UUID) ([]models.Service, error)
	GetService(ctx context.Context, companyID, serviceID uuid.UUID) (models.Service, error)
	CreateService(ctx context.Context, svc *models.Service) error
	SaveService(ctx context.Context, svc *models.Service) error
}

// ServiceInput defines the expected JSON structure for creating or
// updating a service. On update, omitted fields keep their value.
type ServiceInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Duration    *int             `json:"duration"` // in minutes
	Category    *string          `json:"category"`
	IsActive    *bool            `json:"isActive"`
	StartTime   *string          `json:"startTime"`
	EndTime     *string          `json:"endTime"`
	Monday      *bool            `json:"monday"`
	Tuesday     *bool            `json:"tuesday"`
	Wednesday   *bool            `json:"wednesday"`
	Thursday    *bool            `json:"thursday"`
	Friday      *bool            `json:"friday"`
	Saturday    *bool            `json:"saturday"`
	Sunday      *bool            `json:"sunday"`
}

func (in ServiceInput) apply(s *models.Service) {
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.Description != nil {
		s.Description = *in.Description
	}
	if in.Price != nil {
		s.Price = *in.Price
	}
	if in.Duration != nil {
		s.Duration = *in.Duration
	}
	if in.Category != nil {
		s.Category = *in.Category
	}
	if in.StartTime != nil {
		s.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		s.EndTime = *in.EndTime
	}
	setBool(&s.IsActive, in.IsActive)
	setBool(&s.Monday, in.Monday)
	setBool(&s.Tuesday, in.Tuesday)
	setBool(&s.Wednesday, in.Wednesday)
	setBool(&s.Thursday, in.Thursday)
	setBool(&s.Friday, in.Friday)
	setBool(&s.Saturday, in.Saturday)
	setBool(&s.Sunday, in.Sunday)
}

type ServiceController struct {
	store ServiceStore
}

func NewServiceController(store ServiceStore) *ServiceController {
	return &ServiceController{store: store}
}

// CreateService creates a new service. New services are active and open
// Monday to Friday, 09:00 to 18:00, unless the body says otherwise.
func (sc *ServiceController) CreateService(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	var input ServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.Name == nil || *input.Name == "" || input.Price == nil {
		utils.RespondWithError(c, http.StatusBadRequest, "name and price are required")
		return
	}

	service := models.Service{
		CompanyID: companyID,
		Category:  "General",
		IsActive:  true,
		StartTime: "09:00",
		EndTime:   "18:00",
		Monday:    true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true,
	}
	input.apply(&service)
	if !sc.valid(c, service) {
		return
	}

	if err := sc.store.CreateService(c.Request.Context(), &service); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, service)
}

// GetServices retrieves all services of the company, inactive included
func (sc *ServiceController) GetServices(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	services, err := sc.store.ListServices(c.Request.Context(), companyID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if services == nil {
		services = []models.Service{}
	}
	c.JSON(http.StatusOK, services)
}

// UpdateService updates an existing service
func (sc *ServiceController) UpdateService(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input ServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	service, err := sc.store.GetService(ctx, companyID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	input.apply(&service)
	if !sc.valid(c, service) {
		return
	}

	if err := sc.store.SaveService(ctx, &service); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, service)
}

// DeleteService deactivates a service. Existing appointments keep it.
func (sc *ServiceController) DeleteService(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	service, err := sc.store.GetService(ctx, companyID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	service.IsActive = false
	if err := sc.store.SaveService(ctx, &service); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service deactivated"})
}

func (sc *ServiceController) valid(c *gin.Context, s models.Service) bool {
	if s.Price.IsNegative() {
		utils.RespondWithError(c, http.StatusBadRequest, "price must not be negative")
		return false
	}
	if err := s.Validate(); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
