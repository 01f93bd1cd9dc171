package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/medatechnology/goutil/medaerror"

	orm "github.com/medatechnology/orderstore"
)

// Extended result codes, see https://www.sqlite.org/rescode.html
const (
	codeConstraintPrimaryKey = 1555
	codeConstraintUnique     = 2067
	codeBusy                 = 5
)

var (
	ErrSQLiteInvalidConfig = &medaerror.MedaError{Message: "invalid SQLite configuration"}
	ErrSQLiteOpenFailed    = &medaerror.MedaError{Message: "failed to open SQLite database"}
)

// coded is implemented by the driver's error type.
type coded interface {
	Code() int
}

func resultCode(err error) int {
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return 0
}

// IsUniqueViolation reports a UNIQUE or PRIMARY KEY constraint failure.
func IsUniqueViolation(err error) bool {
	switch resultCode(err) {
	case codeConstraintUnique, codeConstraintPrimaryKey:
		return true
	}
	// driver builds without extended codes still say so in the message
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsBusy reports that the database was locked by another connection.
func IsBusy(err error) bool {
	return resultCode(err)&0xff == codeBusy
}

func classify(err error) error {
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", orm.ErrConflict, err)
	}
	return err
}
