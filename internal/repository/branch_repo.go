package repository

import (
	"context"
	"strings"

	"posadmin/internal/dto"
	"posadmin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BranchRepository interface {
	Create(ctx context.Context, b *model.Branch) error
	Update(ctx context.Context, b *model.Branch) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	CodeTaken(ctx context.Context, code string, exceptID *uuid.UUID) (bool, error)
	List(ctx context.Context, filter dto.ListFilter) ([]model.Branch, int64, error)
	ListActive(ctx context.Context) ([]model.Branch, error)
}

type branchRepo struct{ db *gorm.DB }

func NewBranchRepository(db *gorm.DB) BranchRepository { return &branchRepo{db: db} }

func (r *branchRepo) Create(ctx context.Context, b *model.Branch) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *branchRepo) Update(ctx context.Context, b *model.Branch) error {
	return r.db.WithContext(ctx).Save(b).Error
}

// Delete removes the branch; staff profiles pointing at it are nulled by the FK.
func (r *branchRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Branch{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *branchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var b model.Branch
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *branchRepo) CodeTaken(ctx context.Context, code string, exceptID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.Branch{}).Where("code = ?", code)
	if exceptID != nil {
		q = q.Where("id <> ?", *exceptID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *branchRepo) List(ctx context.Context, filter dto.ListFilter) ([]model.Branch, int64, error) {
	var branches []model.Branch
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Branch{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		q = q.Where("name ILIKE ?", containsPattern(s))
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := filter.Normalize()
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&branches).Error
	return branches, total, err
}

func (r *branchRepo) ListActive(ctx context.Context) ([]model.Branch, error) {
	var branches []model.Branch
	err := r.db.WithContext(ctx).Where("is_active = true").Order("name ASC").Find(&branches).Error
	return branches, err
}
