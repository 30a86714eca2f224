package infra

import (
	"fmt"
	"strings"

	"posadmin/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the GORM connection and brings the schema up to date.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// SetupJoinTables registers the join models carrying their own timestamps.
// It must run before any query touching Product.Categories.
func SetupJoinTables(db *gorm.DB) error {
	return db.SetupJoinTable(&model.Product{}, "Categories", &model.CategoryProduct{})
}

// RunMigrations creates / updates all tables and then applies the idempotent
// patches AutoMigrate cannot express (partial indexes, FK actions on join tables).
func RunMigrations(db *gorm.DB) error {
	if err := SetupJoinTables(db); err != nil {
		return fmt.Errorf("join tables: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Branch{},
		&model.User{},
		&model.StaffProfile{},
		&model.CustomerProfile{},
		&model.SupplierProfile{},
		&model.Shift{},
		&model.ProductCategory{},
		&model.Product{},
		&model.CategoryProduct{},
		&model.ProductImage{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL; re-running on a patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"one open shift per user", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_one_open_per_user
    ON shifts (user_id) WHERE closed_at IS NULL`},
		{"stock never negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_products_current_stock') THEN
    ALTER TABLE products ADD CONSTRAINT chk_products_current_stock CHECK (current_stock >= 0);
  END IF;
END $$`},
		{"customer amounts non-negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_customer_profiles_amounts') THEN
    ALTER TABLE customer_profiles ADD CONSTRAINT chk_customer_profiles_amounts
      CHECK (credit_limit >= 0 AND loyalty_points >= 0);
  END IF;
END $$`},
		{"category_product index by category", `
CREATE INDEX IF NOT EXISTS idx_category_product_category
    ON category_product (product_category_id)`},
	}
	// Set here rather than in the gorm tags: on Create gorm swaps an explicit
	// false for the column default.
	for _, col := range []string{"branches.is_active", "users.status", "supplier_profiles.is_active",
		"product_categories.is_active", "products.is_active"} {
		table, column, _ := strings.Cut(col, ".")
		patches = append(patches, struct{ descr, sql string }{
			col + " defaults to true",
			fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT true", table, column),
		})
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
