package controllers

import (
	"context"
	"net/http"
	"time"

	"agenda-backend/models"
	"agenda-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CompanyStore interface {
	GetCompany(ctx context.Context, companyID uuid.UUID) (models.Company, error)
	SaveCompanySettings(ctx context.Context, c models.Company) error
}

// UpdateSettingsInput defines the expected JSON structure. Omitted fields
// keep their current value.
type UpdateSettingsInput struct {
	Timezone              *string `json:"timezone"`
	NationalHolidays      *bool   `json:"nationalHolidays"`
	StateHolidays         *bool   `json:"stateHolidays"`
	CityHolidays          *bool   `json:"cityHolidays"`
	LunchBreakEnabled     *bool   `json:"lunchBreakEnabled"`
	LunchBreakStart       *string `json:"lunchBreakStart"`
	LunchBreakEnd         *string `json:"lunchBreakEnd"`
	WhatsAppNotifications *bool   `json:"whatsAppNotifications"`
}

type ProfileController struct {
	store CompanyStore
}

func NewProfileController(store CompanyStore) *ProfileController {
	return &ProfileController{store: store}
}

// GetProfile returns the caller's company
func (pc *ProfileController) GetProfile(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	company, err := pc.store.GetCompany(c.Request.Context(), companyID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

// UpdateSettings changes the options that shape availability and reminders
func (pc *ProfileController) UpdateSettings(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	var input UpdateSettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	company, err := pc.store.GetCompany(ctx, companyID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil || *input.Timezone == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Unknown timezone")
			return
		}
		company.Timezone = *input.Timezone
	}
	setBool(&company.NationalHolidays, input.NationalHolidays)
	setBool(&company.StateHolidays, input.StateHolidays)
	setBool(&company.CityHolidays, input.CityHolidays)
	setBool(&company.LunchBreakEnabled, input.LunchBreakEnabled)
	setBool(&company.WhatsAppNotifications, input.WhatsAppNotifications)
	if input.LunchBreakStart != nil {
		company.LunchBreakStart = *input.LunchBreakStart
	}
	if input.LunchBreakEnd != nil {
		company.LunchBreakEnd = *input.LunchBreakEnd
	}

	if company.LunchBreakEnabled {
		start, err1 := utils.ParseClock(company.LunchBreakStart)
		end, err2 := utils.ParseClock(company.LunchBreakEnd)
		if err1 != nil || err2 != nil || start >= end {
			utils.RespondWithError(c, http.StatusBadRequest, "Lunch break needs a start before its end (HH:MM)")
			return
		}
	}

	if err := pc.store.SaveCompanySettings(ctx, company); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
