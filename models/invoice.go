package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is the financial record written when an appointment completes.
type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID     uuid.UUID `gorm:"type:uuid;index;not null" json:"companyId"`
	AppointmentID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"appointmentId"`
	CustomerID    uuid.UUID `gorm:"type:uuid;index;not null" json:"customerId"`

	InvoiceNumber string    `gorm:"uniqueIndex;not null" json:"invoiceNumber"`
	InvoiceDate   time.Time `json:"invoiceDate"`

	Subtotal decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Discount decimal.Decimal `gorm:"type:decimal(10,2);default:0.0" json:"discount"`
	Total    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`

	PaymentStatus string `gorm:"type:varchar(20);default:'unpaid'" json:"paymentStatus"`
	Notes         string `json:"notes,omitempty"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items"`
}

type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"invoiceId"`
	ServiceID   *uuid.UUID      `gorm:"type:uuid;index" json:"serviceId,omitempty"`
	Description string          `gorm:"not null" json:"description"`
	Quantity    int             `gorm:"default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unitPrice"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalPrice"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}
