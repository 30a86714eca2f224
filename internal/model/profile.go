package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProfileKind string

const (
	ProfileStaff    ProfileKind = "staff"
	ProfileCustomer ProfileKind = "customer"
	ProfileSupplier ProfileKind = "supplier"
)

// Profile is the role-specific satellite record of a user. Exactly one
// variant is valid for a user at a time, chosen by User.Role.
type Profile interface {
	Kind() ProfileKind
	OwnerID() uuid.UUID
}

// StaffProfile belongs to super admins, admins and cashiers.
type StaffProfile struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	BranchID  *uuid.UUID `gorm:"type:uuid;index"`
	StaffCode string     `gorm:"type:varchar(40);uniqueIndex;not null"`
	Position  string     `gorm:"type:varchar(100);index"`
	HiredAt   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	Branch *Branch `gorm:"foreignKey:BranchID;constraint:OnDelete:SET NULL"`
}

func (StaffProfile) Kind() ProfileKind       { return ProfileStaff }
func (p StaffProfile) OwnerID() uuid.UUID    { return p.UserID }
func (CustomerProfile) Kind() ProfileKind    { return ProfileCustomer }
func (p CustomerProfile) OwnerID() uuid.UUID { return p.UserID }
func (SupplierProfile) Kind() ProfileKind    { return ProfileSupplier }
func (p SupplierProfile) OwnerID() uuid.UUID { return p.UserID }

type CustomerProfile struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	CustomerCode  string          `gorm:"type:varchar(40);uniqueIndex;not null"`
	CreditLimit   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	LoyaltyPoints int             `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type SupplierProfile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	CompanyName  string    `gorm:"type:varchar(150);not null"`
	PaymentTerms string    `gorm:"type:varchar(100);index"`
	TaxID        *string   `gorm:"type:varchar(50)"`
	IsActive     bool      `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
