package orm

import (
	"reflect"
	"testing"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"cheese", "cheese"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
	}
	for _, tt := range tests {
		if got := EscapeLike(tt.input); got != tt.expected {
			t.Errorf("EscapeLike(%q) = %q; want %q", tt.input, got, tt.expected)
		}
	}
	if got := ContainsPattern("Ba_SIL"); got != `%ba\_sil%` {
		t.Errorf("ContainsPattern() = %q", got)
	}
}

func TestConvertSQLCommands(t *testing.T) {
	lines := []string{
		"-- schema",
		"CREATE TABLE a (",
		"  id INTEGER -- key",
		");",
		"",
		"CREATE INDEX i ON a (id); CREATE INDEX j ON a (id);",
		"SELECT 1",
	}
	expected := []string{
		"CREATE TABLE a ( id INTEGER )",
		"CREATE INDEX i ON a (id)",
		"CREATE INDEX j ON a (id)",
		"SELECT 1",
	}
	if got := ConvertSQLCommands(lines); !reflect.DeepEqual(got, expected) {
		t.Errorf("ConvertSQLCommands() = %q; want %q", got, expected)
	}
}

func TestConditionToWhereString(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		where     string
		args      []interface{}
	}{
		{
			name:      "Field",
			condition: Condition{Field: "rating", Operator: ">=", Value: 4},
			where:     "rating >= ?",
			args:      []interface{}{4},
		},
		{
			name:      "Default operator",
			condition: Condition{Field: "id", Value: 1},
			where:     "id = ?",
			args:      []interface{}{1},
		},
		{
			name:      "Expression",
			condition: Expr("LOWER(name) LIKE ?"+LikeEscapeClause, "%a%"),
			where:     `LOWER(name) LIKE ? ESCAPE '\'`,
			args:      []interface{}{"%a%"},
		},
		{
			name: "Or of ands",
			condition: Or(
				And(Expr("a = ?", 1), Expr("b = ?", 2)),
				And(Expr("c = ?", 3)),
			),
			where: "((a = ? AND b = ?) OR c = ?)",
			args:  []interface{}{1, 2, 3},
		},
		{
			name:      "Empty groups are dropped",
			condition: And(Condition{}, Or(), Expr("x = ?", 9)),
			where:     "x = ?",
			args:      []interface{}{9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.condition.ToWhereString()
			if where != tt.where {
				t.Errorf("Expected where %q, got %q", tt.where, where)
			}
			if !reflect.DeepEqual(args, tt.args) {
				t.Errorf("Expected args %v, got %v", tt.args, args)
			}
		})
	}

	if !And(Condition{}, Or()).IsEmpty() {
		t.Errorf("Expected nested empty conditions to be empty")
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := QuoteIdentifier("order"); got != `"order"` {
		t.Errorf("Expected %q, got %q", `"order"`, got)
	}
	if err := ValidateIdentifier("product_ingredient"); err != nil {
		t.Errorf("Expected valid identifier, got %v", err)
	}
	for _, bad := range []string{"", "1abc", "a b", `a"b`, "a;b"} {
		if err := ValidateIdentifier(bad); err == nil {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}
