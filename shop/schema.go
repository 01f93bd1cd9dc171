package shop

import (
	"context"
	"strings"

	orm "github.com/medatechnology/orderstore"
)

// schemaScript is shared by both dialects; {{PK}} becomes the dialect's
// auto-increment key definition.
const schemaScript = `
CREATE TABLE IF NOT EXISTS "role" (
	name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS "user" (
	id {{PK}},
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL REFERENCES "role" (name)
);
-- email is unique whatever the letter case
CREATE UNIQUE INDEX IF NOT EXISTS user_email_lower ON "user" (LOWER(email));

CREATE TABLE IF NOT EXISTS "product" (
	id {{PK}},
	name TEXT NOT NULL,
	price NUMERIC(12, 2) NOT NULL DEFAULT 0 CHECK (price >= 0),
	image TEXT NOT NULL DEFAULT '',
	rating DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS "ingredient" (
	id {{PK}},
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS "product_ingredient" (
	product_id BIGINT NOT NULL REFERENCES "product" (id) ON DELETE CASCADE,
	ingredient_id BIGINT NOT NULL REFERENCES "ingredient" (id) ON DELETE CASCADE,
	PRIMARY KEY (product_id, ingredient_id)
);

-- one cart per user, see CartRepository.FindOrCreateByUserID
CREATE TABLE IF NOT EXISTS "cart" (
	id {{PK}},
	user_id BIGINT NOT NULL UNIQUE REFERENCES "user" (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS "cart_item" (
	cart_id BIGINT NOT NULL REFERENCES "cart" (id) ON DELETE CASCADE,
	product_id BIGINT NOT NULL REFERENCES "product" (id) ON DELETE CASCADE,
	count INTEGER NOT NULL CHECK (count > 0),
	PRIMARY KEY (cart_id, product_id)
);

CREATE TABLE IF NOT EXISTS "order" (
	id {{PK}},
	user_id BIGINT NOT NULL REFERENCES "user" (id)
);
CREATE INDEX IF NOT EXISTS order_user_id ON "order" (user_id);

CREATE TABLE IF NOT EXISTS "order_item" (
	order_id BIGINT NOT NULL REFERENCES "order" (id) ON DELETE CASCADE,
	product_id BIGINT NOT NULL REFERENCES "product" (id),
	count INTEGER NOT NULL CHECK (count > 0),
	PRIMARY KEY (order_id, product_id)
);
`

// SchemaStatements returns the DDL for the dialect, one statement each.
func SchemaStatements(dialect orm.Dialect) []string {
	script := strings.ReplaceAll(schemaScript, "{{PK}}", dialect.AutoIncrementKey())
	return orm.ConvertSQLCommands(strings.Split(script, "\n"))
}

// Migrate creates every table and index that does not exist yet, in one
// transaction.
func Migrate(ctx context.Context, db orm.Database) error {
	statements := SchemaStatements(db.Dialect())
	return db.RunInTransaction(ctx, func(tx orm.Transaction) error {
		for _, stmt := range statements {
			if res := tx.ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{Query: stmt}); res.Error != nil {
				return res.Error
			}
		}
		return nil
	})
}
