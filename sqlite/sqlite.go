// Package sqlite provides an orm.Database on the pure Go SQLite driver
// github.com/glebarez/go-sqlite, for embedded deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	orm "github.com/medatechnology/orderstore"
	"github.com/medatechnology/orderstore/internal/sqlrunner"
)

const driverName = "sqlite"

// Options are the optional collaborators of a Database.
type Options struct {
	Logger  orm.Logger
	Metrics *orm.Metrics
}

type sqliteDB struct {
	db        *sql.DB
	config    Config
	hooks     sqlrunner.Hooks
	runner    *sqlrunner.Runner
	startTime time.Time
}

// NewDatabase opens the database. The pool holds exactly one connection:
// SQLite allows a single writer anyway, an in-memory database only lives as
// long as its connection, and transactions queue on the pool instead of
// failing with SQLITE_BUSY. A RunInTransaction callback must therefore only
// use the Transaction it is given.
func NewDatabase(config Config, opts Options) (orm.Database, error) {
	dsn, err := config.ToDSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLiteOpenFailed, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, orm.WrapConnectionError(fmt.Errorf("%w: %w", ErrSQLiteOpenFailed, err))
	}

	logger := opts.Logger
	if logger == nil {
		logger = orm.NewNoopLogger()
	}
	hooks := sqlrunner.Hooks{
		Classify: classify,
		Logger:   logger.With(orm.String("dbms", "sqlite")),
		Metrics:  opts.Metrics,
	}
	hooks.Logger.Debug("opened", orm.String("path", config.Path))

	return &sqliteDB{
		db:        db,
		config:    config,
		hooks:     hooks,
		runner:    sqlrunner.New(db, hooks),
		startTime: time.Now(),
	}, nil
}

func (s *sqliteDB) Dialect() orm.Dialect { return orm.DialectSQLite }

func (s *sqliteDB) Close() error {
	return s.db.Close()
}

func (s *sqliteDB) SelectSQLParameterized(ctx context.Context, paramSQL orm.ParameterizedSQL) (orm.DBRecords, error) {
	return s.runner.SelectSQLParameterized(ctx, paramSQL)
}

func (s *sqliteDB) ExecOneSQLParameterized(ctx context.Context, paramSQL orm.ParameterizedSQL) orm.BasicSQLResult {
	return s.runner.ExecOneSQLParameterized(ctx, paramSQL)
}

// RunInTransaction runs fn in one transaction. With a single connection
// transactions are fully serialized.
func (s *sqliteDB) RunInTransaction(ctx context.Context, fn func(orm.Transaction) error) error {
	return sqlrunner.RunInTransaction(ctx, s.db, nil, s.hooks, fn)
}

func (s *sqliteDB) IsConnected(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

// Status reports the library version, database size and pool usage.
func (s *sqliteDB) Status(ctx context.Context) (orm.StatusStruct, error) {
	stats := s.db.Stats()
	status := orm.StatusStruct{
		URL:             "sqlite://" + s.config.Path,
		DBMS:            "sqlite",
		DBMSDriver:      "glebarez/go-sqlite",
		StartTime:       s.startTime,
		Uptime:          time.Since(s.startTime),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
	}

	const versionQuery = "SELECT sqlite_version()"
	if err := s.db.QueryRowContext(ctx, versionQuery).Scan(&status.Version); err != nil {
		return status, orm.WrapErrorWithQuery(err, "STATUS", "", versionQuery)
	}
	const sizeQuery = "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()"
	if err := s.db.QueryRowContext(ctx, sizeQuery).Scan(&status.DBSize); err != nil {
		s.hooks.Logger.Warn("database size unavailable", orm.Error(err))
	}
	return status, nil
}
