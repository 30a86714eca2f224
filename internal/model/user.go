package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a login account. Role picks which of the three profiles is live.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"type:varchar(255);not null;index"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Password  string    `gorm:"not null" json:"-"`
	Role      Role      `gorm:"type:varchar(20);not null;index"`
	Status    bool      `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	StaffProfile    *StaffProfile    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CustomerProfile *CustomerProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	SupplierProfile *SupplierProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Profile returns the profile matching the user's role, or nil when it is
// missing or the loaded relations do not include it.
func (u *User) Profile() Profile {
	switch u.Role.ProfileKind() {
	case ProfileStaff:
		if u.StaffProfile != nil {
			return u.StaffProfile
		}
	case ProfileCustomer:
		if u.CustomerProfile != nil {
			return u.CustomerProfile
		}
	case ProfileSupplier:
		if u.SupplierProfile != nil {
			return u.SupplierProfile
		}
	}
	return nil
}
