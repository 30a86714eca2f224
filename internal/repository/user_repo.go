package repository

import (
	"context"
	"fmt"
	"strings"

	"posadmin/internal/dto"
	"posadmin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository persists users together with their role profiles.
type UserRepository interface {
	// Transaction runs fn against a repository bound to one DB transaction.
	// Returning an error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx UserRepository) error) error

	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	EmailTaken(ctx context.Context, email string, exceptID *uuid.UUID) (bool, error)
	// List filters by filter and, when scope is non-empty, only returns
	// users whose role is in scope.
	List(ctx context.Context, filter dto.UserFilter, scope []model.Role) ([]model.User, int64, error)
	CountByRole(ctx context.Context, scope []model.Role) (map[model.Role]int64, error)

	CreateProfile(ctx context.Context, p model.Profile) error
	SaveProfile(ctx context.Context, p model.Profile) error
	DeleteProfiles(ctx context.Context, userID uuid.UUID) error
	CountProfiles(ctx context.Context, userID uuid.UUID) (map[model.ProfileKind]int64, error)
	CodeExists(ctx context.Context, kind model.ProfileKind, code string) (bool, error)
}

type userRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func (r *userRepo) Transaction(ctx context.Context, fn func(tx UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&userRepo{db: tx})
	})
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Omit("StaffProfile", "CustomerProfile", "SupplierProfile").Create(u).Error
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Model(u).Select("name", "email", "password", "role", "status", "updated_at").
		Updates(u).Error
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) withProfiles() *gorm.DB {
	return r.db.Preload("StaffProfile").Preload("StaffProfile.Branch").
		Preload("CustomerProfile").Preload("SupplierProfile")
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := r.withProfiles().WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) EmailTaken(ctx context.Context, email string, exceptID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email)
	if exceptID != nil {
		q = q.Where("id <> ?", *exceptID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

// rolePriorityOrder sorts users super_admin first, customer last.
func rolePriorityOrder() string {
	var b strings.Builder
	b.WriteString("CASE role")
	for _, r := range model.AllRoles {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", r, r.Priority())
	}
	fmt.Fprintf(&b, " ELSE %d END", len(model.AllRoles)+1)
	return b.String()
}

func (r *userRepo) List(ctx context.Context, filter dto.UserFilter, scope []model.Role) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	q := r.db.WithContext(ctx).Model(&model.User{})
	if len(scope) > 0 {
		q = q.Where("role IN ?", scope)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := containsPattern(s)
		q = q.Where("name ILIKE ? OR email ILIKE ?", like, like)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := filter.Normalize()
	err := q.Preload("StaffProfile").Preload("StaffProfile.Branch").
		Preload("CustomerProfile").Preload("SupplierProfile").
		Order(rolePriorityOrder()).Order("name ASC").
		Limit(limit).Offset(offset).Find(&users).Error
	return users, total, err
}

func (r *userRepo) CountByRole(ctx context.Context, scope []model.Role) (map[model.Role]int64, error) {
	var rows []struct {
		Role  model.Role
		Count int64
	}
	q := r.db.WithContext(ctx).Model(&model.User{}).Select("role, COUNT(*) AS count").Group("role")
	if len(scope) > 0 {
		q = q.Where("role IN ?", scope)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[model.Role]int64, len(rows))
	for _, row := range rows {
		out[row.Role] = row.Count
	}
	return out, nil
}

func (r *userRepo) CreateProfile(ctx context.Context, p model.Profile) error {
	return r.db.WithContext(ctx).Omit("Branch").Create(p).Error
}

func (r *userRepo) SaveProfile(ctx context.Context, p model.Profile) error {
	return r.db.WithContext(ctx).Omit("Branch").Save(p).Error
}

// DeleteProfiles removes every profile row of the user; at most one exists.
func (r *userRepo) DeleteProfiles(ctx context.Context, userID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	for _, m := range []interface{}{&model.StaffProfile{}, &model.CustomerProfile{}, &model.SupplierProfile{}} {
		if err := db.Where("user_id = ?", userID).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *userRepo) CountProfiles(ctx context.Context, userID uuid.UUID) (map[model.ProfileKind]int64, error) {
	out := make(map[model.ProfileKind]int64, 3)
	tables := []struct {
		kind  model.ProfileKind
		model interface{}
	}{
		{model.ProfileStaff, &model.StaffProfile{}},
		{model.ProfileCustomer, &model.CustomerProfile{}},
		{model.ProfileSupplier, &model.SupplierProfile{}},
	}
	for _, t := range tables {
		var n int64
		if err := r.db.WithContext(ctx).Model(t.model).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return nil, err
		}
		out[t.kind] = n
	}
	return out, nil
}

func (r *userRepo) CodeExists(ctx context.Context, kind model.ProfileKind, code string) (bool, error) {
	var q *gorm.DB
	switch kind {
	case model.ProfileStaff:
		q = r.db.WithContext(ctx).Model(&model.StaffProfile{}).Where("staff_code = ?", code)
	case model.ProfileCustomer:
		q = r.db.WithContext(ctx).Model(&model.CustomerProfile{}).Where("customer_code = ?", code)
	default:
		return false, nil
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}
