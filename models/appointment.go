package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "PENDING"
	StatusConfirmed   AppointmentStatus = "CONFIRMED"
	StatusCompleted   AppointmentStatus = "COMPLETED"
	StatusCancelled   AppointmentStatus = "CANCELLED"
	StatusRescheduled AppointmentStatus = "RESCHEDULED"
	StatusNoShow      AppointmentStatus = "NO_SHOW"
)

// ActiveStatuses hold a slot on the calendar.
var ActiveStatuses = []AppointmentStatus{StatusPending, StatusConfirmed}

func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

const (
	SourceWhatsApp = "whatsapp"
	SourceAPI      = "api"
)

type Appointment struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID      uuid.UUID  `gorm:"type:uuid;index:idx_appointment_slot,priority:1;not null" json:"companyId"`
	ServiceID      uuid.UUID  `gorm:"type:uuid;index:idx_appointment_slot,priority:2;not null" json:"serviceId"`
	CustomerID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"customerId"`
	ProfessionalID *uuid.UUID `gorm:"type:uuid;index" json:"professionalId,omitempty"`

	Date      datatypes.Date `gorm:"index:idx_appointment_slot,priority:3;not null" json:"date"`
	StartTime string         `gorm:"type:varchar(5);not null" json:"startTime"`
	EndTime   string         `gorm:"type:varchar(5);not null" json:"endTime"`
	StartsAt  time.Time      `gorm:"type:timestamptz;index;not null" json:"startsAt"`
	EndsAt    time.Time      `gorm:"type:timestamptz;not null" json:"endsAt"`

	Status     AppointmentStatus `gorm:"type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	TotalValue decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"totalValue"`
	Notes      string            `json:"notes,omitempty"`
	Source     string            `gorm:"type:varchar(20);default:'api'" json:"source"`

	RescheduledFromID *uuid.UUID `gorm:"type:uuid" json:"rescheduledFromId,omitempty"`

	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	Company  Company  `gorm:"foreignKey:CompanyID" json:"-"`
	Customer Customer `gorm:"foreignKey:CustomerID" json:"-"`
	Service  Service  `gorm:"foreignKey:ServiceID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// Day returns the civil date of the appointment.
func (a Appointment) Day() time.Time {
	return time.Time(a.Date)
}
