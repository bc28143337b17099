package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CustomHoliday closes the company on a single date.
type CustomHoliday struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID uuid.UUID      `gorm:"type:uuid;index;not null" json:"companyId"`
	Date      datatypes.Date `gorm:"index;not null" json:"date"`
	Name      string         `json:"name"`
	Enabled   bool           `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time      `json:"createdAt"`
}

// HolidayBridge closes the company for a range of dates around a holiday.
type HolidayBridge struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID uuid.UUID      `gorm:"type:uuid;index;not null" json:"companyId"`
	StartDate datatypes.Date `gorm:"not null" json:"startDate"`
	EndDate   datatypes.Date `gorm:"not null" json:"endDate"`
	Name      string         `json:"name"`
	Enabled   bool           `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time      `json:"createdAt"`
}

// DateBlock is an ad-hoc blackout. When AllDay is false only the
// StartTime-EndTime range of each day is unavailable.
type DateBlock struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID uuid.UUID      `gorm:"type:uuid;index;not null" json:"companyId"`
	StartDate datatypes.Date `gorm:"not null" json:"startDate"`
	EndDate   datatypes.Date `gorm:"not null" json:"endDate"`
	AllDay    bool           `gorm:"default:true" json:"allDay"`
	StartTime string         `gorm:"type:varchar(5)" json:"startTime,omitempty"`
	EndTime   string         `gorm:"type:varchar(5)" json:"endTime,omitempty"`
	Reason    string         `json:"reason"`
	Enabled   bool           `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time      `json:"createdAt"`
}

// DateUnblock reopens a date that a public or custom holiday would close.
type DateUnblock struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID uuid.UUID      `gorm:"type:uuid;index;not null" json:"companyId"`
	Date      datatypes.Date `gorm:"index;not null" json:"date"`
	Reason    string         `json:"reason"`
	Enabled   bool           `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (h *CustomHoliday) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return
}

func (b *HolidayBridge) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

func (b *DateBlock) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

func (u *DateUnblock) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}
