package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	orm "github.com/medatechnology/orderstore"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Single placeholder",
			input:    `SELECT * FROM "user" WHERE "id" = ?`,
			expected: `SELECT * FROM "user" WHERE "id" = $1`,
		},
		{
			name:     "Multiple placeholders",
			input:    `INSERT INTO "cart_item" ("cart_id", "count", "product_id") VALUES (?, ?, ?)`,
			expected: `INSERT INTO "cart_item" ("cart_id", "count", "product_id") VALUES ($1, $2, $3)`,
		},
		{
			name:     "Placeholder in string literal",
			input:    `SELECT * FROM "product" WHERE name = 'What?' AND id = ?`,
			expected: `SELECT * FROM "product" WHERE name = 'What?' AND id = $1`,
		},
		{
			name:     "Escaped quote inside literal",
			input:    `SELECT 'it''s?' AS s, ? AS v`,
			expected: `SELECT 'it''s?' AS s, $1 AS v`,
		},
		{
			name:     "LIKE with escape clause",
			input:    `SELECT 1 WHERE LOWER(p.name) LIKE ? ESCAPE '\' AND LOWER(i.name) LIKE ? ESCAPE '\'`,
			expected: `SELECT 1 WHERE LOWER(p.name) LIKE $1 ESCAPE '\' AND LOWER(i.name) LIKE $2 ESCAPE '\'`,
		},
		{
			name:     "No placeholders",
			input:    `SELECT * FROM "order"`,
			expected: `SELECT * FROM "order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Rebind(tt.input))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("unique violation is a conflict", func(t *testing.T) {
		driverErr := &pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "user_email_lower"`}
		err := classify(fmt.Errorf("exec: %w", driverErr))

		assert.True(t, errors.Is(err, orm.ErrConflict))
		assert.True(t, IsUniqueViolation(err))
		var pgErr *PostgreSQLError
		if assert.True(t, errors.As(err, &pgErr)) {
			assert.Equal(t, "23505", pgErr.Code)
		}
	})

	t.Run("serialization failure propagates and is retryable", func(t *testing.T) {
		err := classify(&pq.Error{Code: "40001", Message: "could not serialize access"})

		assert.False(t, errors.Is(err, orm.ErrConflict))
		assert.True(t, IsSerializationFailure(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("deadlock is retryable", func(t *testing.T) {
		err := classify(&pq.Error{Code: "40P01", Message: "deadlock detected"})
		assert.True(t, IsDeadlock(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("foreign key violation is not a conflict", func(t *testing.T) {
		err := classify(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})
		assert.True(t, IsForeignKeyViolation(err))
		assert.False(t, orm.IsConflict(err))
	})

	t.Run("non driver errors pass through", func(t *testing.T) {
		plain := errors.New("boom")
		assert.Same(t, plain, classify(plain))
		assert.False(t, IsRetryable(plain))
	})
}

func TestFormatPostgreSQLError(t *testing.T) {
	assert.Equal(t, "no error", FormatPostgreSQLError(nil))
	assert.Equal(t, "boom", FormatPostgreSQLError(errors.New("boom")))

	formatted := FormatPostgreSQLError(&pq.Error{Code: "23505", Message: "duplicate", Detail: "Key (email)"})
	assert.Equal(t, "Message: duplicate | Code: 23505 | Detail: Key (email)", formatted)
}
