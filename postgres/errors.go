package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/medatechnology/goutil/medaerror"
	"github.com/omeid/pgerror"

	orm "github.com/medatechnology/orderstore"
)

var (
	ErrPostgresInvalidDSN       = &medaerror.MedaError{Message: "invalid PostgreSQL DSN connection string"}
	ErrPostgresConnectionFailed = &medaerror.MedaError{Message: "failed to connect to PostgreSQL database"}
	ErrPostgresInvalidConfig    = &medaerror.MedaError{Message: "invalid PostgreSQL configuration"}
)

// PostgreSQLError keeps the server's diagnostic fields next to the error it
// came from.
type PostgreSQLError struct {
	Code    string // SQLSTATE
	Message string
	Detail  string
	Hint    string
	Err     error // Original error
}

// Error implements the error interface
func (e *PostgreSQLError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s [code=%s]", msg, e.Code)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s - Detail: %s", msg, e.Detail)
	}
	if e.Hint != "" {
		msg = fmt.Sprintf("%s - Hint: %s", msg, e.Hint)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *PostgreSQLError) Unwrap() error {
	return e.Err
}

// asPQ finds the *pq.Error in the chain. pgerror matches on the concrete type,
// so every check below goes through here first.
func asPQ(err error) *pq.Error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr
	}
	return nil
}

// IsUniqueViolation checks if the error is a unique constraint violation
func IsUniqueViolation(err error) bool {
	pqErr := asPQ(err)
	return pqErr != nil && pgerror.UniqueViolation(pqErr) != nil
}

// IsForeignKeyViolation checks if the error is a foreign key constraint violation
func IsForeignKeyViolation(err error) bool {
	pqErr := asPQ(err)
	return pqErr != nil && pgerror.ForeignKeyViolation(pqErr) != nil
}

// IsDeadlock checks if the error is due to a deadlock
func IsDeadlock(err error) bool {
	pqErr := asPQ(err)
	return pqErr != nil && pgerror.DeadlockDetected(pqErr) != nil
}

// IsSerializationFailure checks if the error is a serialization failure
func IsSerializationFailure(err error) bool {
	pqErr := asPQ(err)
	return pqErr != nil && pgerror.SerializationFailure(pqErr) != nil
}

// IsConnectionError checks if the error is related to the database connection
func IsConnectionError(err error) bool {
	pqErr := asPQ(err)
	return pqErr != nil && pgerror.ConnectionException(pqErr) != nil
}

// IsRetryable reports whether the whole transaction can be run again as is.
func IsRetryable(err error) bool {
	return IsDeadlock(err) || IsSerializationFailure(err)
}

// classify maps a driver error onto the orm taxonomy. Unique violations become
// orm.ErrConflict; everything else keeps its diagnostics and passes through,
// serialization failures and deadlocks included, so callers can retry.
func classify(err error) error {
	pqErr := asPQ(err)
	if pqErr == nil {
		return err
	}
	wrapped := &PostgreSQLError{
		Code:    string(pqErr.Code),
		Message: pqErr.Message,
		Detail:  pqErr.Detail,
		Hint:    pqErr.Hint,
		Err:     err,
	}
	if pgerror.UniqueViolation(pqErr) != nil {
		return fmt.Errorf("%w: %w", orm.ErrConflict, wrapped)
	}
	return wrapped
}

// FormatPostgreSQLError formats an error for logs, with the server diagnostics
// when there are any.
func FormatPostgreSQLError(err error) string {
	if err == nil {
		return "no error"
	}
	pqErr := asPQ(err)
	if pqErr == nil {
		return err.Error()
	}

	parts := []string{"Message: " + pqErr.Message, "Code: " + string(pqErr.Code)}
	if pqErr.Detail != "" {
		parts = append(parts, "Detail: "+pqErr.Detail)
	}
	if pqErr.Hint != "" {
		parts = append(parts, "Hint: "+pqErr.Hint)
	}
	return strings.Join(parts, " | ")
}
