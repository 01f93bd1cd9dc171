package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orm "github.com/medatechnology/orderstore"
)

func openMemory(t *testing.T) orm.Database {
	t.Helper()
	db, err := NewDatabase(*NewMemoryConfig(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	res := db.ExecOneSQLParameterized(context.Background(), orm.ParameterizedSQL{
		Query: `CREATE TABLE "tag" (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE)`,
	})
	require.NoError(t, res.Error)
	return db
}

func TestConfigToDSN(t *testing.T) {
	dsn, err := NewMemoryConfig().ToDSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, ":memory:?")
	assert.Contains(t, dsn, "foreign_keys%281%29")
	assert.Contains(t, dsn, "busy_timeout%285000%29")

	_, err = (&Config{}).ToDSN()
	assert.ErrorIs(t, err, ErrSQLiteInvalidConfig)

	_, err = (&Config{Path: "shop.db?mode=ro"}).ToDSN()
	assert.ErrorIs(t, err, ErrSQLiteInvalidConfig)
}

func TestSelectAndExec(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	records, err := db.SelectSQLParameterized(ctx, orm.ParameterizedSQL{Query: `SELECT * FROM "tag"`})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Len(t, records, 0)

	records, err = db.SelectSQLParameterized(ctx, orm.ParameterizedSQL{
		Query:  `INSERT INTO "tag" (name) VALUES (?) RETURNING *`,
		Values: []interface{}{"vegan"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "tag", records[0].TableName)
	id, err := records[0].Int64("id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	res := db.ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
		Query:  `DELETE FROM "tag" WHERE name = ?`,
		Values: []interface{}{"vegan"},
	})
	require.NoError(t, res.Error)
	assert.Equal(t, 1, res.RowsAffected)
}

func TestUniqueViolationIsConflict(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	insert := orm.ParameterizedSQL{Query: `INSERT INTO "tag" (name) VALUES (?)`, Values: []interface{}{"spicy"}}
	require.NoError(t, db.ExecOneSQLParameterized(ctx, insert).Error)

	err := db.ExecOneSQLParameterized(ctx, insert).Error
	require.Error(t, err)
	assert.True(t, orm.IsConflict(err))
	errCtx, ok := orm.GetErrorContext(err)
	require.True(t, ok)
	assert.Equal(t, "tag", errCtx.Table)
}

func TestRunInTransaction(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	count := func() int64 {
		records, err := db.SelectSQLParameterized(ctx, orm.ParameterizedSQL{Query: `SELECT COUNT(*) AS n FROM "tag"`})
		require.NoError(t, err)
		n, err := records[0].Int64("n")
		require.NoError(t, err)
		return n
	}

	t.Run("commits on success", func(t *testing.T) {
		err := db.RunInTransaction(ctx, func(tx orm.Transaction) error {
			return tx.ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
				Query: `INSERT INTO "tag" (name) VALUES (?)`, Values: []interface{}{"a"},
			}).Error
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.RunInTransaction(ctx, func(tx orm.Transaction) error {
			res := tx.ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
				Query: `INSERT INTO "tag" (name) VALUES (?)`, Values: []interface{}{"b"},
			})
			require.NoError(t, res.Error)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(1), count())
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = db.RunInTransaction(ctx, func(tx orm.Transaction) error {
				tx.ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
					Query: `INSERT INTO "tag" (name) VALUES (?)`, Values: []interface{}{"c"},
				})
				panic("bad")
			})
		})
		assert.Equal(t, int64(1), count())
	})

	t.Run("transaction is unusable after the callback", func(t *testing.T) {
		var leaked orm.Transaction
		require.NoError(t, db.RunInTransaction(ctx, func(tx orm.Transaction) error {
			leaked = tx
			return nil
		}))
		_, err := leaked.SelectSQLParameterized(ctx, orm.ParameterizedSQL{Query: `SELECT 1`})
		assert.ErrorIs(t, err, orm.ErrTransactionClosed)
	})
}

func TestStatus(t *testing.T) {
	db := openMemory(t)
	status, err := db.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.DBMS)
	assert.NotEmpty(t, status.Version)
	assert.Equal(t, orm.DialectSQLite, db.Dialect())
	assert.True(t, db.IsConnected(context.Background()))
}
