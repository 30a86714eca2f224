package dto

import "github.com/google/uuid"

// ── Request DTOs ──────────────────────────────────────────────────────────────

type CategoryRequest struct {
	Name      string     `json:"name"       validate:"required,max=255"`
	Slug      *string    `json:"slug"       validate:"omitempty,max=255"`
	ParentID  *uuid.UUID `json:"parent_id"`
	IsActive  *bool      `json:"is_active"`
	SortOrder *int       `json:"sort_order" validate:"omitempty,min=0"`
}

// ── Response DTOs ─────────────────────────────────────────────────────────────

// CategoryNode is one node of the browse tree; children use the same shape.
type CategoryNode struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	ParentID  *uuid.UUID     `json:"parent_id"`
	IsActive  bool           `json:"is_active"`
	SortOrder int            `json:"sort_order"`
	Children  []CategoryNode `json:"children"`
}

// CategoryRow is a flat search result with its breadcrumb.
type CategoryRow struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	ParentID   *uuid.UUID `json:"parent_id"`
	ParentName *string    `json:"parent_name"`
	IsActive   bool       `json:"is_active"`
	SortOrder  int        `json:"sort_order"`
	Path       string     `json:"path"`
}

// CategoryIndexProps carries either Tree (browse) or Results (search).
type CategoryIndexProps struct {
	Mode    string                  `json:"mode"` // browse | search
	Tree    []CategoryNode          `json:"tree,omitempty"`
	Results *Paginated[CategoryRow] `json:"results,omitempty"`
	Filters ListFilter              `json:"filters"`
}

type CategoryFormProps struct {
	Category      *CategoryRow `json:"category,omitempty"`
	HasChildren   bool         `json:"has_children"`
	ProductsCount int64        `json:"products_count"`
	ParentOptions []Option     `json:"parent_options"`
}

// CategoryOption is used by the product form to build a category picker.
type CategoryOption struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id"`
}
