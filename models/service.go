package models

import (
	"fmt"
	"time"

	"agenda-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"companyId"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Duration    int             `json:"duration"` // in minutes
	Category    string          `gorm:"default:'General'" json:"category"`
	IsActive    bool            `gorm:"not null;default:false" json:"isActive"`

	// Daily availability window, "HH:MM".
	StartTime string `gorm:"type:varchar(5);not null;default:'09:00'" json:"startTime"`
	EndTime   string `gorm:"type:varchar(5);not null;default:'18:00'" json:"endTime"`

	Monday    bool `gorm:"not null;default:false" json:"monday"`
	Tuesday   bool `gorm:"not null;default:false" json:"tuesday"`
	Wednesday bool `gorm:"not null;default:false" json:"wednesday"`
	Thursday  bool `gorm:"not null;default:false" json:"thursday"`
	Friday    bool `gorm:"not null;default:false" json:"friday"`
	Saturday  bool `gorm:"not null;default:false" json:"saturday"`
	Sunday    bool `gorm:"not null;default:false" json:"sunday"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// OpenOn reports whether the weekday flag for d is set.
func (s Service) OpenOn(d time.Weekday) bool {
	switch d {
	case time.Monday:
		return s.Monday
	case time.Tuesday:
		return s.Tuesday
	case time.Wednesday:
		return s.Wednesday
	case time.Thursday:
		return s.Thursday
	case time.Friday:
		return s.Friday
	case time.Saturday:
		return s.Saturday
	default:
		return s.Sunday
	}
}

// Window returns the availability window in minutes since midnight.
func (s Service) Window() (start, end int, err error) {
	if start, err = utils.ParseClock(s.StartTime); err != nil {
		return 0, 0, fmt.Errorf("service %s start time: %w", s.ID, err)
	}
	if end, err = utils.ParseClock(s.EndTime); err != nil {
		return 0, 0, fmt.Errorf("service %s end time: %w", s.ID, err)
	}
	return start, end, nil
}

func (s Service) Validate() error {
	if s.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrConfiguration)
	}
	start, end, err := s.Window()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if start >= end {
		return fmt.Errorf("%w: start time must be before end time", ErrConfiguration)
	}
	return nil
}
