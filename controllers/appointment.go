package controllers

import (
	"context"
	"net/http"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/booking"
	"agenda-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Booker interface {
	Create(ctx context.Context, req booking.CreateRequest) (models.Appointment, error)
	Confirm(ctx context.Context, companyID, id uuid.UUID) (models.Appointment, error)
	Cancel(ctx context.Context, companyID, id uuid.UUID) (models.Appointment, error)
	Complete(ctx context.Context, companyID, id uuid.UUID, items []booking.LineItem) (models.Appointment, models.Invoice, error)
	Reschedule(ctx context.Context, companyID, id uuid.UUID, newDate time.Time, newStart, newEnd string) (models.Appointment, error)
}

type AppointmentReader interface {
	GetAppointment(ctx context.Context, companyID, id uuid.UUID) (models.Appointment, error)
	InvoiceByAppointment(ctx context.Context, companyID, appointmentID uuid.UUID) (models.Invoice, error)
}

// CreateAppointmentInput defines the expected JSON structure
type CreateAppointmentInput struct {
	CustomerID     uuid.UUID  `json:"customerId" binding:"required"`
	ServiceID      uuid.UUID  `json:"serviceId" binding:"required"`
	ProfessionalID *uuid.UUID `json:"professionalId"`
	Date           string     `json:"date" binding:"required"`
	StartTime      string     `json:"startTime" binding:"required"`
	Notes          string     `json:"notes"`
}

type RescheduleInput struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
}

type CompleteInput struct {
	Items []booking.LineItem `json:"items" binding:"dive"`
}

type AppointmentController struct {
	booker Booker
	reader AppointmentReader
}

func NewAppointmentController(booker Booker, reader AppointmentReader) *AppointmentController {
	return &AppointmentController{booker: booker, reader: reader}
}

// Create books a new appointment
func (ac *AppointmentController) Create(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	var input CreateAppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	date, err := utils.ParseDate(input.Date)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	appt, err := ac.booker.Create(c.Request.Context(), booking.CreateRequest{
		CompanyID:      companyID,
		CustomerID:     input.CustomerID,
		ServiceID:      input.ServiceID,
		ProfessionalID: input.ProfessionalID,
		Date:           date,
		StartTime:      input.StartTime,
		Notes:          input.Notes,
		Source:         models.SourceAPI,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

func (ac *AppointmentController) Get(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	appt, err := ac.reader.GetAppointment(c.Request.Context(), companyID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (ac *AppointmentController) Confirm(c *gin.Context) {
	ac.transition(c, ac.booker.Confirm)
}

func (ac *AppointmentController) Cancel(c *gin.Context) {
	ac.transition(c, ac.booker.Cancel)
}

func (ac *AppointmentController) transition(c *gin.Context, fn func(ctx context.Context, companyID, id uuid.UUID) (models.Appointment, error)) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	appt, err := fn(c.Request.Context(), companyID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// Complete closes the appointment and returns it with its invoice.
func (ac *AppointmentController) Complete(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input CompleteInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}

	appt, invoice, err := ac.booker.Complete(c.Request.Context(), companyID, id, input.Items)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointment": appt, "invoice": invoice})
}

func (ac *AppointmentController) Reschedule(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input RescheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	date, err := utils.ParseDate(input.Date)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	appt, err := ac.booker.Reschedule(c.Request.Context(), companyID, id, date, input.StartTime, input.EndTime)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}
