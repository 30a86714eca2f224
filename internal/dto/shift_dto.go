package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenShiftRequest struct {
	OpeningCash *decimal.Decimal `json:"opening_cash" validate:"required,min=0,max=100000"`
}

type CloseShiftRequest struct {
	ClosingCash *decimal.Decimal `json:"closing_cash" validate:"required,min=0"`
	Notes       *string          `json:"notes"        validate:"omitempty,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ShiftResponse struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	OpenedAt    time.Time        `json:"opened_at"`
	ClosedAt    *time.Time       `json:"closed_at"`
	OpeningCash decimal.Decimal  `json:"opening_cash"`
	ClosingCash *decimal.Decimal `json:"closing_cash"`
	Notes       *string          `json:"notes"`
	IsOpen      bool             `json:"is_open"`
}

type ShiftOpenProps struct {
	LastShift *ShiftResponse `json:"last_shift"`
}

type ShiftCloseProps struct {
	Shift        ShiftResponse   `json:"shift"`
	ExpectedCash decimal.Decimal `json:"expected_cash"`
}

type ShiftIndexProps struct {
	Shifts Paginated[ShiftResponse] `json:"shifts"`
}
