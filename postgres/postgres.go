// Package postgres provides the PostgreSQL implementation of orm.Database on
// top of lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	orm "github.com/medatechnology/orderstore"
	"github.com/medatechnology/orderstore/internal/sqlrunner"
)

// Options are the optional collaborators of a Database.
type Options struct {
	Logger  orm.Logger
	Metrics *orm.Metrics
}

// postgres implements orm.Database for PostgreSQL.
type postgres struct {
	db        *sql.DB // The underlying connection pool
	config    PostgresConfig
	hooks     sqlrunner.Hooks
	runner    *sqlrunner.Runner
	startTime time.Time
}

// NewDatabase opens and pings a connection pool.
func NewDatabase(config PostgresConfig, opts Options) (orm.Database, error) {
	connStr, err := config.ToSimpleDSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPostgresConnectionFailed, classify(err))
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, orm.WrapConnectionError(fmt.Errorf("%w: %w", ErrPostgresConnectionFailed, classify(err)))
	}

	logger := opts.Logger
	if logger == nil {
		logger = orm.NewNoopLogger()
	}
	hooks := sqlrunner.Hooks{
		Rebind:   Rebind,
		Classify: classify,
		Logger:   logger.With(orm.String("dbms", "postgresql")),
		Metrics:  opts.Metrics,
	}
	hooks.Logger.Info("connected", orm.String("target", config.String()))

	return &postgres{
		db:        db,
		config:    config,
		hooks:     hooks,
		runner:    sqlrunner.New(db, hooks),
		startTime: time.Now(),
	}, nil
}

func (pdb *postgres) Dialect() orm.Dialect { return orm.DialectPostgres }

// Close closes the connection pool.
func (pdb *postgres) Close() error {
	return pdb.db.Close()
}

// queryContext applies QueryTimeout to a context without a deadline.
func (pdb *postgres) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || pdb.config.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, pdb.config.QueryTimeout)
}

func (pdb *postgres) SelectSQLParameterized(ctx context.Context, paramSQL orm.ParameterizedSQL) (orm.DBRecords, error) {
	ctx, cancel := pdb.queryContext(ctx)
	defer cancel()
	return pdb.runner.SelectSQLParameterized(ctx, paramSQL)
}

func (pdb *postgres) ExecOneSQLParameterized(ctx context.Context, paramSQL orm.ParameterizedSQL) orm.BasicSQLResult {
	ctx, cancel := pdb.queryContext(ctx)
	defer cancel()
	return pdb.runner.ExecOneSQLParameterized(ctx, paramSQL)
}

// RunInTransaction runs fn in one transaction at the configured isolation
// level. Serialization failures and deadlocks come back unchanged, see
// IsRetryable.
func (pdb *postgres) RunInTransaction(ctx context.Context, fn func(orm.Transaction) error) error {
	return sqlrunner.RunInTransaction(ctx, pdb.db, &sql.TxOptions{Isolation: pdb.config.TxIsolation}, pdb.hooks, fn)
}

// IsConnected checks if the database connection is active.
func (pdb *postgres) IsConnected(ctx context.Context) bool {
	if pdb.db == nil {
		return false
	}
	return pdb.db.PingContext(ctx) == nil
}

// Status reports version, size and pool usage.
func (pdb *postgres) Status(ctx context.Context) (orm.StatusStruct, error) {
	stats := pdb.db.Stats()
	status := orm.StatusStruct{
		URL:             pdb.config.redactedURL(),
		DBMS:            "postgresql",
		DBMSDriver:      "lib/pq",
		StartTime:       pdb.startTime,
		Uptime:          time.Since(pdb.startTime),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
	}

	if err := pdb.db.QueryRowContext(ctx, "SELECT version()").Scan(&status.Version); err != nil {
		return status, orm.WrapErrorWithQuery(classify(err), "STATUS", "", "SELECT version()")
	}
	// size needs CONNECT privilege only, but don't fail the status over it
	if err := pdb.db.QueryRowContext(ctx, "SELECT pg_database_size(current_database())").Scan(&status.DBSize); err != nil {
		pdb.hooks.Logger.Warn("database size unavailable", orm.Error(err))
	}
	return status, nil
}

// Rebind converts '?' placeholders to PostgreSQL $N placeholders, leaving
// quoted strings and identifiers alone.
func Rebind(query string) string {
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	paramIndex := 1
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' || ch == '"' {
			if !inQuote {
				inQuote = true
				quoteChar = ch
			} else if ch == quoteChar {
				// doubled quote inside a literal is an escaped quote
				if i+1 < len(query) && query[i+1] == ch {
					sb.WriteByte(ch)
					sb.WriteByte(ch)
					i++
					continue
				}
				inQuote = false
			}
		}

		if ch == '?' && !inQuote {
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(paramIndex))
			paramIndex++
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}
