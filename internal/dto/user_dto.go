package dto

import (
	"time"

	"posadmin/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// UserFields are shared by create and update. Profile fields only apply to
// the role that owns them.
type UserFields struct {
	Name   string     `json:"name"   validate:"required,max=255"`
	Email  string     `json:"email"  validate:"required,email,max=255"`
	Role   model.Role `json:"role"   validate:"required,oneof=super_admin admin cashier supplier customer"`
	Status *bool      `json:"status"`

	// staff
	Position string     `json:"position"  validate:"required_if=Role cashier,max=100"`
	BranchID *uuid.UUID `json:"branch_id" validate:"required_if=Role cashier"`

	// customer
	CreditLimit   *decimal.Decimal `json:"credit_limit"   validate:"omitempty,min=0,max=9999999999.99"`
	LoyaltyPoints *int             `json:"loyalty_points" validate:"omitempty,min=0"`

	// supplier
	CompanyName  string  `json:"company_name"  validate:"required_if=Role supplier,max=150"`
	PaymentTerms string  `json:"payment_terms" validate:"required_if=Role supplier,max=100"`
	TaxID        *string `json:"tax_id"        validate:"omitempty,max=50"`
}

type CreateUserRequest struct {
	UserFields
	Password string `json:"password" validate:"required,min=8"`
}

type UpdateUserRequest struct {
	UserFields
	// Empty keeps the current password.
	Password string `json:"password" validate:"omitempty,min=8"`
}

type UserFilter struct {
	ListFilter
	Role model.Role `form:"role"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProfileResponse struct {
	Kind model.ProfileKind `json:"kind"`

	StaffCode  string     `json:"staff_code,omitempty"`
	Position   string     `json:"position,omitempty"`
	BranchID   *uuid.UUID `json:"branch_id,omitempty"`
	BranchName string     `json:"branch_name,omitempty"`
	HiredAt    *time.Time `json:"hired_at,omitempty"`

	CustomerCode  string           `json:"customer_code,omitempty"`
	CreditLimit   *decimal.Decimal `json:"credit_limit,omitempty"`
	LoyaltyPoints *int             `json:"loyalty_points,omitempty"`

	CompanyName  string  `json:"company_name,omitempty"`
	PaymentTerms string  `json:"payment_terms,omitempty"`
	TaxID        *string `json:"tax_id,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

type UserResponse struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      model.Role       `json:"role"`
	RoleLabel string           `json:"role_label"`
	Status    bool             `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	Profile   *ProfileResponse `json:"profile"`
}

type RoleCount struct {
	Role  model.Role `json:"role"`
	Label string     `json:"label"`
	Count int64      `json:"count"`
}

type UserIndexProps struct {
	Users       Paginated[UserResponse] `json:"users"`
	RoleCounts  []RoleCount             `json:"role_counts"`
	RoleOptions []Option                `json:"role_options"`
	Filters     UserFilter              `json:"filters"`
}

type UserFormProps struct {
	User        *UserResponse `json:"user,omitempty"`
	RoleOptions []Option      `json:"role_options"`
	Branches    []Option      `json:"branches"`
}
