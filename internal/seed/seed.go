// Package seed loads the demo branch and one account per back-office role.
// Every step is an upsert, so running it twice leaves the same rows.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"posadmin/internal/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const MainBranchCode = "BR001"

type account struct {
	Name  string
	Email string
	Role  model.Role
}

// Accounts are the seeded logins; they all share the seeder password.
var Accounts = []account{
	{"Super Admin", "superadmin@pos.com", model.RoleSuperAdmin},
	{"Admin User", "admin@pos.com", model.RoleAdmin},
	{"Cashier User", "cashier@pos.com", model.RoleCashier},
	{"Supplier User", "supplier@pos.com", model.RoleSupplier},
}

func strp(s string) *string { return &s }

// Branches upserts the main branch by code and returns it.
func Branches(ctx context.Context, db *gorm.DB) (*model.Branch, error) {
	b := model.Branch{
		Name:     "Main Branch",
		Code:     MainBranchCode,
		Phone:    strp("+254700000001"),
		Email:    strp("main@pos.com"),
		Address:  strp("123 Main Street"),
		City:     strp("Nairobi"),
		IsActive: true,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "email", "address", "city", "is_active", "updated_at"}),
	}).Create(&b).Error
	if err != nil {
		return nil, fmt.Errorf("seed branch: %w", err)
	}
	if err := db.WithContext(ctx).Where("code = ?", MainBranchCode).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// Users upserts every account by email together with its profile.
func Users(ctx context.Context, db *gorm.DB, password string, branch *model.Branch) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	now := time.Now()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range Accounts {
			u := model.User{Name: a.Name, Email: a.Email, Password: string(hash), Role: a.Role, Status: true}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "email"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "password", "role", "status", "updated_at"}),
			}).Create(&u).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", a.Email, err)
			}
			if err := tx.Where("email = ?", a.Email).First(&u).Error; err != nil {
				return err
			}

			switch a.Role.ProfileKind() {
			case model.ProfileStaff:
				p := model.StaffProfile{
					UserID:    u.ID,
					BranchID:  &branch.ID,
					StaffCode: "STF-" + strings.ToUpper(string(a.Role)),
					Position:  a.Role.Label(),
					HiredAt:   &now,
				}
				err = tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "user_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"branch_id", "position", "updated_at"}),
				}).Create(&p).Error
			case model.ProfileSupplier:
				p := model.SupplierProfile{
					UserID:       u.ID,
					CompanyName:  a.Name + " Ltd",
					PaymentTerms: "net_30",
					IsActive:     true,
				}
				err = tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "user_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"company_name", "payment_terms", "is_active", "updated_at"}),
				}).Create(&p).Error
			}
			if err != nil {
				return fmt.Errorf("seed profile %s: %w", a.Email, err)
			}
			log.Info().Str("email", a.Email).Str("role", string(a.Role)).Msg("seeded user")
		}
		return nil
	})
}

// Run seeds branches, then users.
func Run(ctx context.Context, db *gorm.DB, password string) error {
	b, err := Branches(ctx, db)
	if err != nil {
		return err
	}
	return Users(ctx, db, password, b)
}
