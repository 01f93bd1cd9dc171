package orm

// Column is a column identifier. Columns are declared as constants next to
// the entity they belong to; they are never built from input.
type Column string

// Predicate is one equality test inside a Filter.
type Predicate struct {
	Column Column
	Value  interface{}
}

// Filter is a conjunction of equality predicates. The zero Filter matches
// every row.
type Filter []Predicate

// Where starts a filter with one predicate.
func Where(column Column, value interface{}) Filter {
	return Filter{{Column: column, Value: value}}
}

// And returns a copy of f with one more predicate.
func (f Filter) And(column Column, value interface{}) Filter {
	out := make(Filter, 0, len(f)+1)
	out = append(out, f...)
	return append(out, Predicate{Column: column, Value: value})
}

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return len(f) == 0
}

// Condition converts the filter into a Condition tree, validating every
// column on the way.
func (f Filter) Condition() (Condition, error) {
	nested := make([]Condition, 0, len(f))
	for _, p := range f {
		if err := ValidateIdentifier(string(p.Column)); err != nil {
			return Condition{}, err
		}
		nested = append(nested, Condition{
			Field:    QuoteIdentifier(string(p.Column)),
			Operator: "=",
			Value:    p.Value,
		})
	}
	return And(nested...), nil
}
