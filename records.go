package orm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DBRecord is one loosely typed row: column name to whatever the driver
// handed back. Backends normalize []byte to string before building it, but
// the accessors below still accept every representation a driver may use.
type DBRecord struct {
	TableName string
	Data      map[string]interface{}
}

type DBRecords []DBRecord

// Append adds a new DBRecord to the DBRecords slice.
func (d *DBRecords) Append(rec DBRecord) {
	*d = append(*d, rec)
}

// Has reports whether the column is present and not NULL.
func (d DBRecord) Has(column string) bool {
	v, ok := d.Data[column]
	return ok && v != nil
}

func (d DBRecord) required(column string) (interface{}, error) {
	v, ok := d.Data[column]
	if !ok {
		return nil, d.integrity(column, "column is missing")
	}
	if v == nil {
		return nil, d.integrity(column, "column is NULL")
	}
	return v, nil
}

func (d DBRecord) integrity(column, reason string) error {
	return WrapErrorWithFields(
		fmt.Errorf("%w: %s %s", ErrIntegrity, column, reason),
		"DECODE", d.TableName,
		map[string]interface{}{"column": column},
	)
}

// Int64 reads a required integer column.
func (d DBRecord) Int64(column string) (int64, error) {
	v, err := d.required(column)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, d.integrity(column, fmt.Sprintf("%v is not an integer", n))
		}
		return int64(n), nil
	case []byte:
		return d.parseInt(column, string(n))
	case string:
		return d.parseInt(column, n)
	case decimal.Decimal:
		if !n.IsInteger() {
			return 0, d.integrity(column, fmt.Sprintf("%s is not an integer", n))
		}
		return n.IntPart(), nil
	}
	return 0, d.integrity(column, fmt.Sprintf("unsupported type %T", v))
}

func (d DBRecord) parseInt(column, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	// SUM over a bigint comes back as numeric in postgres, e.g. "5" or "5.0"
	dec, err := decimal.NewFromString(s)
	if err != nil || !dec.IsInteger() {
		return 0, d.integrity(column, fmt.Sprintf("%q is not an integer", s))
	}
	return dec.IntPart(), nil
}

// Int reads a required integer column into an int.
func (d DBRecord) Int(column string) (int, error) {
	n, err := d.Int64(column)
	return int(n), err
}

// Float64 reads a required numeric column.
func (d DBRecord) Float64(column string) (float64, error) {
	v, err := d.required(column)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case []byte:
		return d.parseFloat(column, string(n))
	case string:
		return d.parseFloat(column, n)
	case decimal.Decimal:
		f, _ := n.Float64()
		return f, nil
	}
	return 0, d.integrity(column, fmt.Sprintf("unsupported type %T", v))
}

func (d DBRecord) parseFloat(column, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, d.integrity(column, fmt.Sprintf("%q is not a number", s))
	}
	return f, nil
}

// Decimal reads a required numeric column without going through float64
// when the driver gave us text.
func (d DBRecord) Decimal(column string) (decimal.Decimal, error) {
	v, err := d.required(column)
	if err != nil {
		return decimal.Zero, err
	}
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case []byte:
		return d.parseDecimal(column, string(n))
	case string:
		return d.parseDecimal(column, n)
	case int64:
		return decimal.NewFromInt(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	}
	return decimal.Zero, d.integrity(column, fmt.Sprintf("unsupported type %T", v))
}

func (d DBRecord) parseDecimal(column, s string) (decimal.Decimal, error) {
	dec, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, d.integrity(column, fmt.Sprintf("%q is not a decimal", s))
	}
	return dec, nil
}

// String reads a required text column. Numbers are formatted rather than
// rejected; a text column holding digits is still text.
func (d DBRecord) String(column string) (string, error) {
	v, err := d.required(column)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return "", d.integrity(column, fmt.Sprintf("unsupported type %T", v))
}

// OptionalString reads a nullable text column; NULL and missing read as "".
func (d DBRecord) OptionalString(column string) (string, error) {
	if !d.Has(column) {
		return "", nil
	}
	return d.String(column)
}

// Codec maps between a typed entity T and rows. P is the partial form of T
// used for inserts and sparse updates: Encode emits only the columns that are
// set in P.
type Codec[T any, P any] interface {
	Decode(DBRecord) (T, error)
	Encode(P) map[string]interface{}
}

// DecodeAll decodes every record, stopping at the first integrity fault.
func DecodeAll[T any, P any](codec Codec[T, P], records DBRecords) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		v, err := codec.Decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
