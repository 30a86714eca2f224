package model

import (
	"time"

	"github.com/google/uuid"
)

// Branch is a physical store location.
type Branch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"type:varchar(120);not null;index"`
	Code      string    `gorm:"type:varchar(30);uniqueIndex;not null"`
	Phone     *string   `gorm:"type:varchar(30)"`
	Email     *string
	Address   *string
	City      *string `gorm:"type:varchar(100)"`
	IsActive  bool    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
