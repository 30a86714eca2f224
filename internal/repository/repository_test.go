package repository

import (
	"context"
	"testing"

	"posadmin/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type capturedSQL struct {
	sql  string
	vars []interface{}
}

// dryRunDB builds statements against the Postgres dialect without a server
// and records every INSERT and SELECT it would have sent.
func dryRunDB(t *testing.T) (*gorm.DB, *[]capturedSQL) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=pos dbname=pos sslmode=disable"}),
		&gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	require.NoError(t, err)

	var got []capturedSQL
	capture := func(tx *gorm.DB) {
		got = append(got, capturedSQL{
			sql:  tx.Statement.SQL.String(),
			vars: append([]interface{}(nil), tx.Statement.Vars...),
		})
	}
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:capture", capture))
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture", capture))
	return db, &got
}

func TestCreate_KeepsExplicitInactiveFlag(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		column string
		create func(db *gorm.DB) error
	}{
		{"branch", `"is_active"`, func(db *gorm.DB) error {
			return NewBranchRepository(db).Create(ctx, &model.Branch{Name: "Closed", Code: "BR9"})
		}},
		{"category", `"is_active"`, func(db *gorm.DB) error {
			return NewCategoryRepository(db).Create(ctx, &model.ProductCategory{Name: "Hidden", Slug: "hidden"})
		}},
		{"product", `"is_active"`, func(db *gorm.DB) error {
			return NewProductRepository(db).Create(ctx, &model.Product{Name: "Retired"})
		}},
		{"user", `"status"`, func(db *gorm.DB) error {
			return NewUserRepository(db).Create(ctx, &model.User{Name: "Off", Email: "off@pos.com", Role: model.RoleCustomer})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, got := dryRunDB(t)
			require.NoError(t, tc.create(db))
			require.Len(t, *got, 1)

			insert := (*got)[0]
			assert.Contains(t, insert.sql, tc.column)
			assert.Contains(t, insert.vars, false)
			assert.NotContains(t, insert.vars, true)
		})
	}
}

func TestContainsPattern(t *testing.T) {
	cases := map[string]string{
		"cola":      "%cola%",
		"  cola  ":  "%cola%",
		"50%":       `%50\%%`,
		"a_b":       `%a\_b%`,
		`back\path`: `%back\\path%`,
		"":          "%%",
	}
	for in, want := range cases {
		assert.Equal(t, want, containsPattern(in), in)
	}
}

func TestSearch_EscapesWildcards(t *testing.T) {
	db, got := dryRunDB(t)
	_, _, err := NewCategoryRepository(db).Search(context.Background(), "_", 10, 0)
	require.NoError(t, err)

	require.NotEmpty(t, *got)
	for _, q := range *got {
		assert.Contains(t, q.vars, `%\_%`)
	}
}
