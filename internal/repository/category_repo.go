package repository

import (
	"context"

	"posadmin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryRepository defines data access for the product category forest.
type CategoryRepository interface {
	Create(ctx context.Context, c *model.ProductCategory) error
	Update(ctx context.Context, c *model.ProductCategory) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductCategory, error)
	// All returns every category; trees and ancestor chains are built from it.
	All(ctx context.Context) ([]model.ProductCategory, error)
	Search(ctx context.Context, term string, limit, offset int) ([]model.ProductCategory, int64, error)
	ListActiveRoots(ctx context.Context) ([]model.ProductCategory, error)
	ListActive(ctx context.Context) ([]model.ProductCategory, error)
	CountChildren(ctx context.Context, id uuid.UUID) (int64, error)
	// CountProducts counts distinct products linked to any of the categories.
	CountProducts(ctx context.Context, ids []uuid.UUID) (int64, error)
	CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type categoryRepo struct{ db *gorm.DB }

func NewCategoryRepository(db *gorm.DB) CategoryRepository { return &categoryRepo{db: db} }

func (r *categoryRepo) Create(ctx context.Context, c *model.ProductCategory) error {
	return r.db.WithContext(ctx).Omit("Parent").Create(c).Error
}

func (r *categoryRepo) Update(ctx context.Context, c *model.ProductCategory) error {
	return r.db.WithContext(ctx).Omit("Parent").Save(c).Error
}

func (r *categoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.ProductCategory{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductCategory, error) {
	var c model.ProductCategory
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepo) All(ctx context.Context) ([]model.ProductCategory, error) {
	var list []model.ProductCategory
	err := r.db.WithContext(ctx).Order("sort_order ASC").Order("name ASC").Find(&list).Error
	return list, err
}

func (r *categoryRepo) Search(ctx context.Context, term string, limit, offset int) ([]model.ProductCategory, int64, error) {
	var list []model.ProductCategory
	var total int64

	q := r.db.WithContext(ctx).Model(&model.ProductCategory{}).
		Where("name ILIKE ?", containsPattern(term))
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

func (r *categoryRepo) ListActiveRoots(ctx context.Context) ([]model.ProductCategory, error) {
	var list []model.ProductCategory
	err := r.db.WithContext(ctx).Where("parent_id IS NULL AND is_active = true").
		Order("sort_order ASC").Order("name ASC").Find(&list).Error
	return list, err
}

func (r *categoryRepo) ListActive(ctx context.Context) ([]model.ProductCategory, error) {
	var list []model.ProductCategory
	err := r.db.WithContext(ctx).Where("is_active = true").Order("name ASC").Find(&list).Error
	return list, err
}

func (r *categoryRepo) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ProductCategory{}).Where("parent_id = ?", id).Count(&n).Error
	return n, err
}

func (r *categoryRepo) CountProducts(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.CategoryProduct{}).
		Where("product_category_id IN ?", ids).
		Distinct("product_id").Count(&n).Error
	return n, err
}

func (r *categoryRepo) CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ProductCategory{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}
