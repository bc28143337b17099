package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultTimezone = "America/Sao_Paulo"

// Company is a tenant. Every other record is scoped to one.
type Company struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name     string    `gorm:"not null" json:"name"`
	Phone    string    `json:"phone"`
	Address  string    `json:"address"`
	State    string    `gorm:"type:varchar(2)" json:"state"`
	City     string    `json:"city"`
	Timezone string    `gorm:"default:'America/Sao_Paulo'" json:"timezone"`

	// WhatsAppNumber is the gateway number customers write to. Inbound
	// webhooks are routed to the tenant owning the number.
	WhatsAppNumber string `gorm:"index:idx_company_whatsapp_number,unique,where:whats_app_number <> ''" json:"whatsAppNumber"`

	NationalHolidays bool `gorm:"default:true" json:"nationalHolidays"`
	StateHolidays    bool `gorm:"default:true" json:"stateHolidays"`
	CityHolidays     bool `gorm:"default:true" json:"cityHolidays"`

	LunchBreakEnabled bool   `gorm:"default:false" json:"lunchBreakEnabled"`
	LunchBreakStart   string `gorm:"type:varchar(5)" json:"lunchBreakStart"`
	LunchBreakEnd     string `gorm:"type:varchar(5)" json:"lunchBreakEnd"`

	WhatsAppNotifications bool `gorm:"default:true" json:"whatsAppNotifications"`

	Services          []Service          `gorm:"foreignKey:CompanyID" json:"-"`
	Customers         []Customer         `gorm:"foreignKey:CompanyID" json:"-"`
	ReminderTemplates []ReminderTemplate `gorm:"foreignKey:CompanyID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// Location resolves the company timezone, falling back to the default
// zone and finally UTC.
func (c Company) Location() *time.Location {
	name := c.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.UTC
}
