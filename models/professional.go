package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Professional struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;index;not null" json:"companyId"`
	FullName  string    `gorm:"not null" json:"fullName"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Professional) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
