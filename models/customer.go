package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_company_phone,priority:1" json:"companyId"`

	Name  string `gorm:"not null" json:"name"`
	Phone string `gorm:"not null;uniqueIndex:idx_company_phone,priority:2" json:"phone"`
	Email string `json:"email"`
	// Document is the national tax id used to recover an account after a
	// phone number change.
	Document string `gorm:"index" json:"document,omitempty"`

	// FlowStep is the serialized conversation state.
	FlowStep string `gorm:"type:varchar(120)" json:"flowStep"`

	Notes       string          `json:"notes"`
	TotalVisits int             `gorm:"default:0" json:"totalVisits"`
	TotalSpent  decimal.Decimal `gorm:"type:decimal(10,2);default:0.0" json:"totalSpent"`
	LastVisit   *time.Time      `json:"lastVisit"`
	IsActive    bool            `gorm:"default:true" json:"isActive"`

	Invoices []Invoice `gorm:"foreignKey:CustomerID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// Registered reports whether the customer finished onboarding.
func (c Customer) Registered() bool {
	return c.Email != ""
}
