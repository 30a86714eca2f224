package dto

import (
	"time"

	"github.com/google/uuid"
)

type BranchRequest struct {
	Name     string  `json:"name"     validate:"required,max=120"`
	Code     string  `json:"code"     validate:"required,max=30"`
	Phone    *string `json:"phone"    validate:"omitempty,max=30"`
	Email    *string `json:"email"    validate:"omitempty,email,max=255"`
	Address  *string `json:"address"  validate:"omitempty,max=255"`
	City     *string `json:"city"     validate:"omitempty,max=100"`
	IsActive *bool   `json:"is_active"`
}

type BranchResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Phone     *string   `json:"phone"`
	Email     *string   `json:"email"`
	Address   *string   `json:"address"`
	City      *string   `json:"city"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type BranchIndexProps struct {
	Branches Paginated[BranchResponse] `json:"branches"`
	Total    int64                     `json:"total"`
	Filters  ListFilter                `json:"filters"`
}

type BranchFormProps struct {
	Branch *BranchResponse `json:"branch,omitempty"`
}
