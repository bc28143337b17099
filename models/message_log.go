// models/message_log.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DirectionIncoming = "INCOMING"
	DirectionOutgoing = "OUTGOING"
)

// MessageLog is an append-only record of one WhatsApp message.
type MessageLog struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"companyId"`
	CustomerID    *uuid.UUID      `gorm:"type:uuid;index" json:"customerId,omitempty"`
	AppointmentID *uuid.UUID      `gorm:"type:uuid;index" json:"appointmentId,omitempty"`
	Phone         string          `gorm:"type:varchar(20);index" json:"phone"`
	Direction     string          `gorm:"type:varchar(10);not null" json:"direction"`
	Message       string          `gorm:"type:text" json:"message"`
	Tag           string          `gorm:"type:varchar(30);index" json:"tag,omitempty"` // reminder_24h, reminder_12h, reminder_1h, feedback
	Channel       string          `gorm:"type:varchar(20);default:'whatsapp'" json:"channel"`
	MessageSID    string          `gorm:"type:varchar(64)" json:"messageSid,omitempty"`
	Status        string          `gorm:"type:varchar(20)" json:"status"` // received, sent, failed
	ErrorMessage  string          `gorm:"type:text" json:"errorMessage,omitempty"`
	Paid          bool            `gorm:"default:false" json:"paid"`
	Cost          decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"cost"`
	CreatedAt     time.Time       `gorm:"index" json:"createdAt"`
}

func (m *MessageLog) BeforeCreate(tx *gorm.DB) (err error) {
	m.ID = uuid.New()
	return
}
