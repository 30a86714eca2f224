package model

import (
	"time"

	"github.com/google/uuid"
)

// ProductCategory is a node of the category forest. Children are not mapped
// as a relation; the tree is assembled from flat rows by service code.
type ProductCategory struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string     `gorm:"type:varchar(255);not null;index"`
	Slug      string     `gorm:"type:varchar(255);index"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index"`
	IsActive  bool       `gorm:"not null"`
	SortOrder int        `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Parent *ProductCategory `gorm:"foreignKey:ParentID;constraint:OnDelete:RESTRICT"`
}

func (c *ProductCategory) IsRoot() bool { return c.ParentID == nil }
