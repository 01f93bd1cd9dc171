package orm

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ID is the set of primary key types a Store can be keyed by.
type ID interface {
	~int64 | ~string
}

// Store is the entity-agnostic CRUD engine. It knows a table, its primary key
// column and a Codec, and nothing about the domain. Statements that don't fit
// single-table CRUD go straight to Executor().
type Store[K ID, T any, P any] struct {
	db     Database
	table  string
	quoted string
	pk     Column
	codec  Codec[T, P]
	logger Logger
}

// NewStore builds a Store. table and pk are identifiers declared in code, so
// NewStore panics if either is not a plain identifier.
func NewStore[K ID, T any, P any](db Database, table string, pk Column, codec Codec[T, P], logger Logger) *Store[K, T, P] {
	if err := ValidateTableName(table); err != nil {
		panic(fmt.Sprintf("orm.NewStore: table %q: %v", table, err))
	}
	if err := ValidateIdentifier(string(pk)); err != nil {
		panic(fmt.Sprintf("orm.NewStore: primary key %q: %v", pk, err))
	}
	return &Store[K, T, P]{
		db:     db,
		table:  table,
		quoted: QuoteIdentifier(table),
		pk:     pk,
		codec:  codec,
		logger: loggerOrNoop(logger).With(String("table", table)),
	}
}

// Executor is the storage the store runs on, for composed statements.
func (s *Store[K, T, P]) Executor() Database { return s.db }

// Table is the quoted table identifier, ready to splice into SQL.
func (s *Store[K, T, P]) Table() string { return s.quoted }

// Codec returns the row codec.
func (s *Store[K, T, P]) Codec() Codec[T, P] { return s.codec }

func (s *Store[K, T, P]) pkEquals() string {
	return QuoteIdentifier(string(s.pk)) + " = ?"
}

// FindAll returns every row, in storage order.
func (s *Store[K, T, P]) FindAll(ctx context.Context) ([]T, error) {
	return s.QueryAll(ctx, s.db, ParameterizedSQL{Query: "SELECT * FROM " + s.quoted})
}

// FindByID returns the row with the given key, or nil.
func (s *Store[K, T, P]) FindByID(ctx context.Context, id K) (*T, error) {
	return s.QueryOne(ctx, s.db, ParameterizedSQL{
		Query:  fmt.Sprintf("SELECT * FROM %s WHERE %s", s.quoted, s.pkEquals()),
		Values: []interface{}{id},
	})
}

// FindBy returns every row matching the filter. An empty filter is FindAll.
func (s *Store[K, T, P]) FindBy(ctx context.Context, f Filter) ([]T, error) {
	query, values, err := s.selectWhere("SELECT * FROM "+s.quoted, f)
	if err != nil {
		return nil, err
	}
	return s.QueryAll(ctx, s.db, ParameterizedSQL{Query: query, Values: values})
}

// FindOneBy returns the first row matching the filter, or nil. An empty filter
// is refused with ErrUnconstrainedQuery: "the first row in storage order" is
// never what a caller means.
func (s *Store[K, T, P]) FindOneBy(ctx context.Context, f Filter) (*T, error) {
	if f.IsEmpty() {
		return nil, WrapSelectError(ErrUnconstrainedQuery, s.table)
	}
	query, values, err := s.selectWhere("SELECT * FROM "+s.quoted, f)
	if err != nil {
		return nil, err
	}
	records, err := s.db.SelectSQLParameterized(ctx, ParameterizedSQL{Query: query + " LIMIT 1", Values: values})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	v, err := s.codec.Decode(records[0])
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts the columns set in p and returns the stored row, including
// anything storage filled in such as the key.
func (s *Store[K, T, P]) Create(ctx context.Context, p P) (T, error) {
	return s.CreateWith(ctx, s.db, p)
}

// CreateWith is Create on an explicit executor, typically a Transaction.
func (s *Store[K, T, P]) CreateWith(ctx context.Context, exec Executor, p P) (T, error) {
	var zero T
	columns, values, err := s.encode(p)
	if err != nil {
		return zero, err
	}

	var query string
	if len(columns) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", s.quoted)
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			s.quoted, strings.Join(columns, ", "), placeholders)
	}

	created, err := s.QueryOne(ctx, exec, ParameterizedSQL{Query: query, Values: values})
	if err != nil {
		return zero, err
	}
	if created == nil {
		return zero, WrapInsertError(fmt.Errorf("%w: insert returned no row", ErrIntegrity), s.table)
	}
	return *created, nil
}

// Update sets the columns present in p on the row with the given key and
// returns the updated row, or nil if there is no such row. An empty p changes
// nothing and returns the current row.
func (s *Store[K, T, P]) Update(ctx context.Context, id K, p P) (*T, error) {
	columns, values, err := s.encode(p)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		s.logger.Debug("update without columns, returning current row", Any("id", id))
		return s.FindByID(ctx, id)
	}

	sets := make([]string, len(columns))
	for i, col := range columns {
		sets[i] = col + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING *", s.quoted, strings.Join(sets, ", "), s.pkEquals())
	return s.QueryOne(ctx, s.db, ParameterizedSQL{Query: query, Values: append(values, id)})
}

// Delete removes the row with the given key and reports whether there was one.
func (s *Store[K, T, P]) Delete(ctx context.Context, id K) (bool, error) {
	res := s.db.ExecOneSQLParameterized(ctx, ParameterizedSQL{
		Query:  fmt.Sprintf("DELETE FROM %s WHERE %s", s.quoted, s.pkEquals()),
		Values: []interface{}{id},
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Count counts the rows matching f; an empty filter counts the table.
func (s *Store[K, T, P]) Count(ctx context.Context, f Filter) (int64, error) {
	query, values, err := s.selectWhere("SELECT COUNT(*) AS count FROM "+s.quoted, f)
	if err != nil {
		return 0, err
	}
	records, err := s.db.SelectSQLParameterized(ctx, ParameterizedSQL{Query: query, Values: values})
	if err != nil {
		return 0, err
	}
	if len(records) != 1 {
		return 0, WrapSelectError(fmt.Errorf("%w: count returned %d rows", ErrIntegrity, len(records)), s.table)
	}
	return records[0].Int64("count")
}

// Exists reports whether a row with the given key exists.
func (s *Store[K, T, P]) Exists(ctx context.Context, id K) (bool, error) {
	records, err := s.db.SelectSQLParameterized(ctx, ParameterizedSQL{
		Query:  fmt.Sprintf("SELECT 1 AS present FROM %s WHERE %s LIMIT 1", s.quoted, s.pkEquals()),
		Values: []interface{}{id},
	})
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// QueryAll runs a composed statement on exec and decodes every row.
func (s *Store[K, T, P]) QueryAll(ctx context.Context, exec Executor, paramSQL ParameterizedSQL) ([]T, error) {
	records, err := exec.SelectSQLParameterized(ctx, paramSQL)
	if err != nil {
		return nil, err
	}
	return DecodeAll(s.codec, records)
}

// QueryOne runs a composed statement on exec that yields at most one row and
// decodes it. No row is nil; more than one is ErrSQLMoreThanOneRow.
func (s *Store[K, T, P]) QueryOne(ctx context.Context, exec Executor, paramSQL ParameterizedSQL) (*T, error) {
	records, err := exec.SelectSQLParameterized(ctx, paramSQL)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		v, err := s.codec.Decode(records[0])
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, WrapSelectError(ErrSQLMoreThanOneRow, s.table)
	}
}

func (s *Store[K, T, P]) selectWhere(base string, f Filter) (string, []interface{}, error) {
	if f.IsEmpty() {
		return base, nil, nil
	}
	cond, err := f.Condition()
	if err != nil {
		return "", nil, err
	}
	where, values := cond.ToWhereString()
	return base + " WHERE " + where, values, nil
}

// encode runs the codec and returns quoted columns in a stable order with
// their values.
func (s *Store[K, T, P]) encode(p P) ([]string, []interface{}, error) {
	row := s.codec.Encode(p)
	names := make([]string, 0, len(row))
	for name := range row {
		if err := ValidateIdentifier(name); err != nil {
			return nil, nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]string, len(names))
	values := make([]interface{}, len(names))
	for i, name := range names {
		columns[i] = QuoteIdentifier(name)
		values[i] = row[name]
	}
	return columns, values, nil
}
