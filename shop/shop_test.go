package shop

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	orm "github.com/medatechnology/orderstore"
	"github.com/medatechnology/orderstore/sqlite"
)

type fixture struct {
	ctx  context.Context
	db   orm.Database
	repo *Repositories
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.NewDatabase(*sqlite.NewMemoryConfig(), sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	repo := NewRepositories(db, nil)
	require.NoError(t, repo.Roles.EnsureRoles(ctx, DefaultRoles...))
	return &fixture{ctx: ctx, db: db, repo: repo}
}

func ptr[V any](v V) *V { return &v }

func (f *fixture) user(t *testing.T, email string) User {
	t.Helper()
	u, err := f.repo.Users.Create(f.ctx, UserPatch{
		Email:        ptr(email),
		PasswordHash: ptr("hash"),
		Name:         ptr("Ann"),
		Role:         ptr("customer"),
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) product(t *testing.T, name string, price string, ingredients ...string) Product {
	t.Helper()
	p, err := f.repo.Products.Create(f.ctx, ProductPatch{
		Name:  ptr(name),
		Price: ptr(decimal.RequireFromString(price)),
	})
	require.NoError(t, err)
	for _, name := range ingredients {
		ing, err := f.repo.Ingredients.FindByName(f.ctx, name)
		require.NoError(t, err)
		if ing == nil {
			created, err := f.repo.Ingredients.Create(f.ctx, IngredientPatch{Name: ptr(name)})
			require.NoError(t, err)
			ing = &created
		}
		_, err = f.repo.Products.AddIngredient(f.ctx, p.ID, ing.ID)
		require.NoError(t, err)
	}
	return p
}

func TestSchemaStatements(t *testing.T) {
	statements := SchemaStatements(orm.DialectPostgres)
	require.NotEmpty(t, statements)
	for _, stmt := range statements {
		require.NotContains(t, stmt, "{{PK}}")
		require.NotContains(t, stmt, ";")
	}
	require.Contains(t, statements[1], "BIGSERIAL PRIMARY KEY")
	require.Contains(t, SchemaStatements(orm.DialectSQLite)[1], "AUTOINCREMENT")
}

func TestMigrateIsRepeatable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, Migrate(f.ctx, f.db))
	require.NoError(t, f.repo.Roles.EnsureRoles(f.ctx, DefaultRoles...))

	roles, err := f.repo.Roles.FindAll(f.ctx)
	require.NoError(t, err)
	require.Len(t, roles, len(DefaultRoles))
}
