package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReminderDayBefore  = "reminder_24h"
	ReminderSameDay    = "reminder_12h"
	ReminderHourBefore = "reminder_1h"
	ReminderFeedback   = "feedback"
)

// ReminderTemplate overrides the built-in text of one reminder kind.
// Placeholders: [CustomerName] [ServiceName] [Date] [Time] [CompanyName] [CompanyPhone].
type ReminderTemplate struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_company_template_type;not null" json:"companyId"`
	Type      string    `gorm:"type:varchar(20);uniqueIndex:idx_company_template_type;not null" json:"type"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	IsActive  bool      `gorm:"not null;default:false" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReminderKinds lists every template type the scheduler sends.
var ReminderKinds = []string{ReminderDayBefore, ReminderSameDay, ReminderHourBefore, ReminderFeedback}

func (t *ReminderTemplate) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
