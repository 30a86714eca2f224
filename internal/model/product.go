package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LowStockThreshold marks products that still have stock but need reordering.
const LowStockThreshold = 10

// Product is a sellable catalog item.
type Product struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU               *string          `gorm:"column:sku;type:varchar(50);uniqueIndex"`
	Barcode           *string          `gorm:"type:varchar(50);uniqueIndex"`
	Name              string           `gorm:"type:varchar(120);not null;index"`
	Description       *string          `gorm:"type:text"`
	BuyingPrice       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	SellingPrice      decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	CurrentStock      int              `gorm:"not null;default:0"`
	UnitOfMeasurement string           `gorm:"type:varchar(20);not null;default:'pcs'"`
	IsActive          bool             `gorm:"not null"`
	SortOrder         int              `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Categories []ProductCategory `gorm:"many2many:category_product;constraint:OnDelete:CASCADE"`
	Images     []ProductImage    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// CategoryProduct is the join row between products and categories.
type CategoryProduct struct {
	ProductID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductCategoryID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (CategoryProduct) TableName() string { return "category_product" }

var hundred = decimal.NewFromInt(100)

// ProfitMargin is the markup over buying price in percent, rounded to two
// places. Nil without a buying price; 100 when the buying price is zero.
func (p *Product) ProfitMargin() *decimal.Decimal {
	if p.BuyingPrice == nil {
		return nil
	}
	if p.BuyingPrice.IsZero() {
		m := hundred
		return &m
	}
	m := p.SellingPrice.Sub(*p.BuyingPrice).Div(*p.BuyingPrice).Mul(hundred).Round(2)
	return &m
}

func (p *Product) ProfitPerUnit() *decimal.Decimal {
	if p.BuyingPrice == nil {
		return nil
	}
	v := p.SellingPrice.Sub(*p.BuyingPrice).Round(2)
	return &v
}

// StockValue is the stock on hand valued at buying price.
func (p *Product) StockValue() *decimal.Decimal {
	if p.BuyingPrice == nil {
		return nil
	}
	v := p.BuyingPrice.Mul(decimal.NewFromInt(int64(p.CurrentStock))).Round(2)
	return &v
}

func (p *Product) InStock() bool { return p.CurrentStock > 0 }

func (p *Product) LowStock() bool {
	return p.CurrentStock > 0 && p.CurrentStock <= LowStockThreshold
}

// PrimaryImage returns the image flagged primary, if any.
func (p *Product) PrimaryImage() *ProductImage {
	for i := range p.Images {
		if p.Images[i].IsPrimary {
			return &p.Images[i]
		}
	}
	return nil
}

// ProductImage is a picture stored in object storage under Path.
type ProductImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Path      string    `gorm:"not null"`
	IsPrimary bool      `gorm:"not null;default:false"`
	SortOrder int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
