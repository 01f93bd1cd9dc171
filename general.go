package orm

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect names the SQL flavour a Database speaks. Statements are shared
// between dialects; only the few places that genuinely differ ask for it.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// LockForUpdate returns the row-locking suffix for a SELECT inside a
// transaction. SQLite serializes writers at the database level and has no
// row locks, so it gets nothing.
func (d Dialect) LockForUpdate() string {
	if d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// AutoIncrementKey returns the column definition of a surrogate integer key
// assigned by storage.
func (d Dialect) AutoIncrementKey() string {
	if d == DialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// mostly used for rawSQL execution, this is the return, empty if it's not applicable
// This is not for query where we return usually DBRecord or DBRecords / []DBRecord
type BasicSQLResult struct {
	Error        error
	Timing       float64
	RowsAffected int
	LastInsertID int
}

type ParameterizedSQL struct {
	Query  string        `json:"query"`
	Values []interface{} `json:"values,omitempty"`
}

// Condition struct for query filtering.
// It is a tree: a leaf either compares Field with Value using Operator, or
// carries a trusted Expr fragment whose '?' placeholders are bound, in order,
// to Args. Inner nodes join Nested with Logic.
// Sample usage:
//
//	// Simple condition
//	condition := Condition{Field: "rating", Operator: ">=", Value: 4}
//	// Output: rating >= ?
//
//	// Expression leaf
//	condition := Condition{Expr: "LOWER(p.name) LIKE ? ESCAPE '\\'", Args: []interface{}{"%cheese%"}}
//	// Output: LOWER(p.name) LIKE ? ESCAPE '\'
//
//	// Nested condition with OR logic over two AND groups
//	condition := Or(And(a, b), And(c, d))
//	// Output: ((a AND b) OR (c AND d))
type Condition struct {
	Field    string        `json:"field,omitempty"`
	Operator string        `json:"operator,omitempty"`
	Value    interface{}   `json:"value,omitempty"`
	Expr     string        `json:"expr,omitempty"`
	Args     []interface{} `json:"args,omitempty"`
	Logic    string        `json:"logic,omitempty"`  // "AND" or "OR"
	Nested   []Condition   `json:"nested,omitempty"` // For nested conditions
}

// And creates a new Condition with AND logic for the given conditions.
func And(conditions ...Condition) Condition {
	return Condition{
		Logic:  "AND",
		Nested: conditions,
	}
}

// Or creates a new Condition with OR logic for the given conditions.
func Or(conditions ...Condition) Condition {
	return Condition{
		Logic:  "OR",
		Nested: conditions,
	}
}

// Expr creates an expression leaf. The fragment must come from code, never from
// user input; user values go into args.
func Expr(fragment string, args ...interface{}) Condition {
	return Condition{Expr: fragment, Args: args}
}

// IsEmpty reports whether the condition constrains nothing.
func (c Condition) IsEmpty() bool {
	if c.Field != "" || c.Expr != "" {
		return false
	}
	for _, nested := range c.Nested {
		if !nested.IsEmpty() {
			return false
		}
	}
	return true
}

// ToWhereString converts a Condition into a WHERE clause body and its
// parameter values. Nested groups are always parenthesized, so the result can
// be embedded in a larger expression as is.
// Usage:
//
//	whereClause, values := condition.ToWhereString()
func (c Condition) ToWhereString() (string, []interface{}) {
	switch {
	case c.Expr != "":
		return c.Expr, append([]interface{}(nil), c.Args...)
	case c.Field != "":
		op := c.Operator
		if op == "" {
			op = "="
		}
		return fmt.Sprintf("%s %s ?", c.Field, op), []interface{}{c.Value}
	}

	var clauses []string
	var args []interface{}
	for _, nested := range c.Nested {
		if nested.IsEmpty() {
			continue
		}
		subClause, subArgs := nested.ToWhereString()
		clauses = append(clauses, subClause)
		args = append(args, subArgs...)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	if len(clauses) == 1 {
		return clauses[0], args
	}

	logic := strings.ToUpper(strings.TrimSpace(c.Logic))
	if logic == "" {
		logic = "AND"
	}
	return "(" + strings.Join(clauses, " "+logic+" ") + ")", args
}

// ValidateIdentifier makes sure a table or column name is a plain SQL
// identifier before it is spliced into a statement.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return WrapError(ErrInvalidIdentifier, "VALIDATE", name)
	}
	return nil
}

// ValidateTableName is ValidateIdentifier for table names.
func ValidateTableName(name string) error {
	return ValidateIdentifier(name)
}

// QuoteIdentifier double-quotes an identifier. Both supported dialects accept
// this, which is what lets keyword tables like "user" and "order" share code
// with everything else.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
