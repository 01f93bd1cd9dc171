// Package sqlrunner is the database/sql plumbing shared by the postgres and
// sqlite backends: running parameterized statements, turning *sql.Rows into
// orm.DBRecords, timing and logging, and scoped transactions.
package sqlrunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	orm "github.com/medatechnology/orderstore"
)

// Conn is what *sql.DB and *sql.Tx have in common.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Hooks carries the backend-specific parts.
type Hooks struct {
	// Rebind rewrites '?' placeholders into the driver syntax. Nil leaves the
	// query alone.
	Rebind func(string) string
	// Classify maps a driver error onto the orm error taxonomy. Nil leaves the
	// error alone.
	Classify func(error) error
	// Normalize converts a scanned driver value. Nil uses NormalizeValue.
	Normalize func(interface{}) interface{}
	Logger    orm.Logger
	Metrics   *orm.Metrics
}

func (h Hooks) rebind(q string) string {
	if h.Rebind == nil {
		return q
	}
	return h.Rebind(q)
}

func (h Hooks) classify(err error) error {
	if err == nil || h.Classify == nil {
		return err
	}
	return h.Classify(err)
}

func (h Hooks) normalize(v interface{}) interface{} {
	if h.Normalize == nil {
		return NormalizeValue(v)
	}
	return h.Normalize(v)
}

func (h Hooks) logger() orm.Logger {
	if h.Logger == nil {
		return orm.NewNoopLogger()
	}
	return h.Logger
}

// Runner executes statements on one Conn.
type Runner struct {
	conn  Conn
	hooks Hooks
}

// New returns a Runner over conn.
func New(conn Conn, hooks Hooks) *Runner {
	return &Runner{conn: conn, hooks: hooks}
}

// SelectSQLParameterized implements orm.Executor.
func (r *Runner) SelectSQLParameterized(ctx context.Context, paramSQL orm.ParameterizedSQL) (orm.DBRecords, error) {
	query := r.hooks.rebind(paramSQL.Query)
	start := time.Now()

	rows, err := r.conn.QueryContext(ctx, query, paramSQL.Values...)
	if err != nil {
		err = r.fail("SELECT", query, start, err)
		return nil, err
	}
	defer rows.Close()

	records, err := r.scanRows(rows, extractTableName(paramSQL.Query))
	if err != nil {
		return nil, r.fail("SELECT", query, start, err)
	}
	r.done("SELECT", query, start, len(records))
	return records, nil
}

// ExecOneSQLParameterized implements orm.Executor.
func (r *Runner) ExecOneSQLParameterized(ctx context.Context, paramSQL orm.ParameterizedSQL) orm.BasicSQLResult {
	query := r.hooks.rebind(paramSQL.Query)
	start := time.Now()

	result, err := r.conn.ExecContext(ctx, query, paramSQL.Values...)
	if err != nil {
		return orm.BasicSQLResult{Error: r.fail("EXEC", query, start, err), Timing: time.Since(start).Seconds()}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return orm.BasicSQLResult{Error: r.fail("EXEC", query, start, err), Timing: time.Since(start).Seconds()}
	}
	// lib/pq does not support LastInsertId; RETURNING is the portable way
	lastInsertID, _ := result.LastInsertId()

	r.done("EXEC", query, start, int(rowsAffected))
	return orm.BasicSQLResult{
		RowsAffected: int(rowsAffected),
		LastInsertID: int(lastInsertID),
		Timing:       time.Since(start).Seconds(),
	}
}

func (r *Runner) done(op, query string, start time.Time, rows int) {
	elapsed := time.Since(start)
	r.hooks.Metrics.Observe(op, elapsed, nil)
	r.hooks.logger().Debug("statement",
		orm.String("operation", op),
		orm.String("query", query),
		orm.Int("rows", rows),
		orm.Duration("elapsed", elapsed),
	)
}

func (r *Runner) fail(op, query string, start time.Time, err error) error {
	r.hooks.Metrics.Observe(op, time.Since(start), err)
	if errors.Is(err, sql.ErrTxDone) {
		err = fmt.Errorf("%w: %w", orm.ErrTransactionClosed, err)
	}
	wrapped := orm.WrapErrorWithQuery(r.hooks.classify(err), op, extractTableName(query), query)
	// conflicts and cancellations are ordinary outcomes for callers
	if !orm.IsConflict(wrapped) && !errors.Is(err, context.Canceled) {
		orm.LogErrorWithContext(r.hooks.logger(), wrapped)
	}
	return wrapped
}

// scanRows converts sql.Rows to DBRecords. No rows is an empty, non-nil slice.
func (r *Runner) scanRows(rows *sql.Rows, tableName string) (orm.DBRecords, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	records := orm.DBRecords{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		data := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			data[col] = r.hooks.normalize(values[i])
		}
		records.Append(orm.DBRecord{TableName: tableName, Data: data})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// NormalizeValue turns driver-specific representations into plain Go values.
// Text and numeric columns often arrive as []byte; they become strings and
// the row codec takes it from there.
func NormalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	case sql.NullString:
		if v.Valid {
			return v.String
		}
		return nil
	case sql.NullInt64:
		if v.Valid {
			return v.Int64
		}
		return nil
	case sql.NullFloat64:
		if v.Valid {
			return v.Float64
		}
		return nil
	case sql.NullBool:
		if v.Valid {
			return v.Bool
		}
		return nil
	default:
		return value
	}
}

// extractTableName is best effort and only feeds error context and logs.
func extractTableName(query string) string {
	fields := strings.Fields(query)
	for i := 0; i < len(fields)-1; i++ {
		switch strings.ToUpper(fields[i]) {
		case "FROM", "INTO", "UPDATE":
			return strings.Trim(fields[i+1], "\"`(),")
		}
	}
	return ""
}

// tx is the orm.Transaction handed to RunInTransaction callbacks. Once the
// callback returns it refuses further work.
type tx struct {
	mu     sync.Mutex
	closed bool
	runner *Runner
}

func (t *tx) active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

func (t *tx) close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *tx) SelectSQLParameterized(ctx context.Context, paramSQL orm.ParameterizedSQL) (orm.DBRecords, error) {
	if !t.active() {
		return nil, orm.WrapTransactionError(orm.ErrTransactionClosed, "SELECT")
	}
	return t.runner.SelectSQLParameterized(ctx, paramSQL)
}

func (t *tx) ExecOneSQLParameterized(ctx context.Context, paramSQL orm.ParameterizedSQL) orm.BasicSQLResult {
	if !t.active() {
		return orm.BasicSQLResult{Error: orm.WrapTransactionError(orm.ErrTransactionClosed, "EXEC")}
	}
	return t.runner.ExecOneSQLParameterized(ctx, paramSQL)
}

// RunInTransaction runs fn inside a transaction on db. The transaction is
// committed only if fn returns nil; it is rolled back on error and on panic,
// and the panic is re-raised afterwards.
func RunInTransaction(ctx context.Context, db *sql.DB, opts *sql.TxOptions, hooks Hooks, fn func(orm.Transaction) error) (err error) {
	start := time.Now()
	sqlTx, err := db.BeginTx(ctx, opts)
	if err != nil {
		hooks.Metrics.Observe("BEGIN", time.Since(start), err)
		return orm.WrapTransactionError(hooks.classify(err), "BEGIN")
	}

	t := &tx{runner: New(sqlTx, hooks)}
	defer func() {
		t.close()
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if fnErr := fn(t); fnErr != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			hooks.logger().Warn("rollback failed", orm.Error(rbErr))
		}
		hooks.Metrics.Observe("ROLLBACK", time.Since(start), nil)
		return fnErr
	}

	if err := sqlTx.Commit(); err != nil {
		hooks.Metrics.Observe("COMMIT", time.Since(start), err)
		return orm.WrapTransactionError(hooks.classify(err), "COMMIT")
	}
	hooks.Metrics.Observe("COMMIT", time.Since(start), nil)
	return nil
}
