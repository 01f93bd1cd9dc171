package orm

import "context"

// Executor runs parameterized statements. Every statement is written with
// '?' placeholders; a backend rebinds them to its own syntax.
type Executor interface {
	// SelectSQLParameterized runs a statement that returns rows. An empty
	// result is an empty DBRecords and a nil error.
	SelectSQLParameterized(context.Context, ParameterizedSQL) (DBRecords, error)
	// ExecOneSQLParameterized runs a statement that does not return rows.
	ExecOneSQLParameterized(context.Context, ParameterizedSQL) BasicSQLResult
}

// Transaction is an Executor bound to one open transaction. It is only valid
// inside the function handed to Database.RunInTransaction.
type Transaction interface {
	Executor
}

// Database is the storage collaborator consumed by the stores and
// repositories.
type Database interface {
	Executor

	Dialect() Dialect

	// RunInTransaction opens a transaction, hands it to fn and commits when fn
	// returns nil. Any error from fn, and any panic, rolls the transaction
	// back. The Transaction must not be retained after fn returns.
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error

	Status(context.Context) (StatusStruct, error)
	IsConnected(context.Context) bool
	Close() error

	// There is no generic UpdateOneDBRecord or DeleteOneDBRecord here: from a
	// bare record we can't tell which fields are the WHERE part and which ones
	// should be SET. Store knows its primary key and builds those statements
	// itself.
}
