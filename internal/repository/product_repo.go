package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"posadmin/internal/dto"
	"posadmin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientStock is returned when an adjustment would drive stock below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation.
type ProductRepository interface {
	Transaction(ctx context.Context, fn func(tx ProductRepository) error) error

	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error)
	ListAll(ctx context.Context) ([]model.Product, error)
	SKUTaken(ctx context.Context, sku string, exceptID *uuid.UUID) (bool, error)
	BarcodeTaken(ctx context.Context, barcode string, exceptID *uuid.UUID) (bool, error)

	// ReplaceCategories makes categoryIDs the exact category set of the product.
	ReplaceCategories(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error

	// AdjustStock atomically adds delta to current_stock and returns the new
	// level. Fails with ErrInsufficientStock instead of going negative.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error)

	CreateImage(ctx context.Context, img *model.ProductImage) error
	FindImage(ctx context.Context, productID, imageID uuid.UUID) (*model.ProductImage, error)
	DeleteImage(ctx context.Context, imageID uuid.UUID) error
	ListImages(ctx context.Context, productID uuid.UUID) ([]model.ProductImage, error)
	// SetPrimaryImage clears the flag on every image of the product, then sets it on imageID.
	SetPrimaryImage(ctx context.Context, productID, imageID uuid.UUID) error
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Transaction(ctx context.Context, fn func(tx ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&productRepo{db: tx})
	})
}

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Omit("Categories", "Images").Create(p).Error
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Omit("Categories", "Images").Save(p).Error
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&model.CategoryProduct{}).Error; err != nil {
		return err
	}
	if err := db.Where("product_id = ?", id).Delete(&model.ProductImage{}).Error; err != nil {
		return err
	}
	res := db.Delete(&model.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) withRelations() *gorm.DB {
	return r.db.
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") })
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := r.withRelations().WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("barcode = ? AND is_active = true", barcode).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List matches name or sku by substring and barcode exactly.
func (r *productRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := containsPattern(s)
		q = q.Where("name ILIKE ? OR sku ILIKE ? OR barcode = ?", like, like, s)
	}
	if filter.CategoryID != "" {
		if cid, err := uuid.Parse(filter.CategoryID); err == nil {
			q = q.Where("id IN (?)", r.db.Model(&model.CategoryProduct{}).
				Select("product_id").Where("product_category_id = ?", cid))
		}
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := filter.Normalize()
	err := q.Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Order("sort_order ASC").Order("name ASC").
		Limit(limit).Offset(offset).Find(&products).Error
	return products, total, err
}

func (r *productRepo) ListAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Order("sort_order ASC").Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) SKUTaken(ctx context.Context, sku string, exceptID *uuid.UUID) (bool, error) {
	return r.taken(ctx, "sku", sku, exceptID)
}

func (r *productRepo) BarcodeTaken(ctx context.Context, barcode string, exceptID *uuid.UUID) (bool, error) {
	return r.taken(ctx, "barcode", barcode, exceptID)
}

func (r *productRepo) taken(ctx context.Context, column, value string, exceptID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.Product{}).Where(column+" = ?", value)
	if exceptID != nil {
		q = q.Where("id <> ?", *exceptID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *productRepo) ReplaceCategories(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&model.CategoryProduct{}).Error; err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]model.CategoryProduct, 0, len(categoryIDs))
	seen := make(map[uuid.UUID]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, model.CategoryProduct{
			ProductID: productID, ProductCategoryID: id, CreatedAt: now, UpdatedAt: now,
		})
	}
	return db.Create(&rows).Error
}

func (r *productRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var p model.Product
	res := r.db.WithContext(ctx).Model(&p).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "current_stock"}}}).
		Where("id = ? AND current_stock + ? >= 0", id, delta).
		Update("current_stock", gorm.Expr("current_stock + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, gorm.ErrRecordNotFound
		}
		return 0, ErrInsufficientStock
	}
	return p.CurrentStock, nil
}

func (r *productRepo) CreateImage(ctx context.Context, img *model.ProductImage) error {
	return r.db.WithContext(ctx).Create(img).Error
}

func (r *productRepo) FindImage(ctx context.Context, productID, imageID uuid.UUID) (*model.ProductImage, error) {
	var img model.ProductImage
	err := r.db.WithContext(ctx).Where("id = ? AND product_id = ?", imageID, productID).First(&img).Error
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *productRepo) DeleteImage(ctx context.Context, imageID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ProductImage{}, "id = ?", imageID).Error
}

func (r *productRepo) ListImages(ctx context.Context, productID uuid.UUID) ([]model.ProductImage, error) {
	var imgs []model.ProductImage
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("sort_order ASC").Find(&imgs).Error
	return imgs, err
}

func (r *productRepo) SetPrimaryImage(ctx context.Context, productID, imageID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.ProductImage{}).Where("product_id = ?", productID).
		Update("is_primary", false).Error; err != nil {
		return err
	}
	return db.Model(&model.ProductImage{}).Where("id = ? AND product_id = ?", imageID, productID).
		Update("is_primary", true).Error
}
