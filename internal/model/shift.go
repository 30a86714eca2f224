package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shift is one cashier work session. ClosedAt == nil means open; a partial
// unique index keeps at most one open shift per user.
type Shift struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index:idx_shifts_user_opened,priority:1"`
	OpenedAt    time.Time `gorm:"not null;index:idx_shifts_user_opened,priority:2"`
	ClosedAt    *time.Time
	OpeningCash decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	ClosingCash *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Notes       *string          `gorm:"type:varchar(500)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (s *Shift) IsOpen() bool { return s.ClosedAt == nil }
