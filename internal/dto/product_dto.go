package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ProductRequest struct {
	SKU     *string `json:"sku"     validate:"omitempty,max=50"`
	Barcode *string `json:"barcode" validate:"omitempty,max=50"`
	// GenerateBarcode assigns a fresh PROD######## code when Barcode is empty.
	GenerateBarcode   bool             `json:"generate_barcode"`
	Name              string           `json:"name"                validate:"required,max=120"`
	Description       *string          `json:"description"         validate:"omitempty,max=1000"`
	BuyingPrice       *decimal.Decimal `json:"buying_price"        validate:"omitempty,min=0,max=9999999.99"`
	SellingPrice      *decimal.Decimal `json:"selling_price"       validate:"required,min=0,max=9999999.99"`
	CurrentStock      int              `json:"current_stock"       validate:"min=0"`
	UnitOfMeasurement string           `json:"unit_of_measurement" validate:"max=20"`
	IsActive          *bool            `json:"is_active"`
	SortOrder         int              `json:"sort_order"          validate:"min=0"`
	Categories        []uuid.UUID      `json:"categories"`
}

// StockAdjustmentRequest adds (positive) or removes (negative) units.
type StockAdjustmentRequest struct {
	Quantity int `json:"quantity" validate:"required"`
}

type ProductFilter struct {
	ListFilter
	CategoryID string `form:"category_id"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductImageResponse struct {
	ID        uuid.UUID `json:"id"`
	Path      string    `json:"path"`
	IsPrimary bool      `json:"is_primary"`
	SortOrder int       `json:"sort_order"`
}

type ProductResponse struct {
	ID                uuid.UUID              `json:"id"`
	SKU               *string                `json:"sku"`
	Barcode           *string                `json:"barcode"`
	Name              string                 `json:"name"`
	Description       *string                `json:"description"`
	BuyingPrice       *decimal.Decimal       `json:"buying_price"`
	SellingPrice      decimal.Decimal        `json:"selling_price"`
	CurrentStock      int                    `json:"current_stock"`
	UnitOfMeasurement string                 `json:"unit_of_measurement"`
	IsActive          bool                   `json:"is_active"`
	SortOrder         int                    `json:"sort_order"`
	ProfitMargin      *decimal.Decimal       `json:"profit_margin"`
	ProfitPerUnit     *decimal.Decimal       `json:"profit_per_unit"`
	StockValue        *decimal.Decimal       `json:"stock_value"`
	LowStock          bool                   `json:"low_stock"`
	Categories        []CategoryOption       `json:"categories"`
	Images            []ProductImageResponse `json:"images"`
	CreatedAt         time.Time              `json:"created_at"`
}

type ProductIndexProps struct {
	Products Paginated[ProductResponse] `json:"products"`
	Filters  ProductFilter              `json:"filters"`
}

type ProductFormProps struct {
	Product    *ProductResponse `json:"product,omitempty"`
	Categories []CategoryOption `json:"categories"`
}

// PriceLookupResponse is returned by the public price check endpoint (no auth required).
type PriceLookupResponse struct {
	Name              string          `json:"name"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	CurrentStock      int             `json:"current_stock"`
	UnitOfMeasurement string          `json:"unit_of_measurement"`
	Categories        []string        `json:"categories"`
}
