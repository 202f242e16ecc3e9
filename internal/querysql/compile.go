package querysql

import (
	"fmt"
	"strings"
)

// DefaultBatchSize bounds the number of parameters in one In predicate.
// SQLite's default host parameter limit is 999 on older builds.
const DefaultBatchSize = 500

// Select is a single-source SELECT. From may name a table or a join.
type Select struct {
	Columns []string
	From    string
	Filter  Predicate
	// OrderBy lists ORDER BY terms. Empty means "id ASC".
	OrderBy []string
}

// Predicate is a WHERE clause fragment.
type Predicate interface {
	predicate()
}

// Equals matches Field = Value.
type Equals struct {
	Field string
	Value any
}

// In matches Field IN (Values...). An empty list matches nothing.
type In struct {
	Field  string
	Values []any
}

// And is the conjunction of its predicates. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

// IsNull matches rows where Field is NULL.
type IsNull struct {
	Field string
}

func (Equals) predicate() {}
func (In) predicate()     {}
func (And) predicate()    {}
func (IsNull) predicate() {}

// Compile converts q to parameterized SQL for SQLite.
//
// Every query carries an ORDER BY so results are deterministic, and values
// are always bound as parameters, never interpolated.
func Compile(q Select) (string, []any, error) {
	if q.From == "" {
		return "", nil, fmt.Errorf("compile select: missing FROM")
	}

	columns := "*"
	if len(q.Columns) > 0 {
		columns = strings.Join(q.Columns, ", ")
	}

	var where string
	var params []any
	if q.Filter != nil {
		sql, p, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where = " WHERE " + sql
		params = p
	}

	return fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		columns, q.From, where, stableOrderKey(q)), params, nil
}

// stableOrderKey returns the ORDER BY terms for q.
func stableOrderKey(q Select) string {
	if len(q.OrderBy) == 0 {
		return "id ASC"
	}
	return strings.Join(q.OrderBy, ", ")
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		return compileEquals(pred)
	case *Equals:
		return compileEquals(*pred)
	case In:
		return compileIn(pred)
	case *In:
		return compileIn(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	case IsNull:
		return pred.Field + " IS NULL", nil, nil
	case *IsNull:
		return pred.Field + " IS NULL", nil, nil
	case nil:
		return "1 = 1", nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq Equals) (string, []any, error) {
	if err := checkParam(eq.Value); err != nil {
		return "", nil, fmt.Errorf("%s: %w", eq.Field, err)
	}
	return eq.Field + " = ?", []any{eq.Value}, nil
}

func compileIn(in In) (string, []any, error) {
	if len(in.Values) == 0 {
		return "1 = 0", nil, nil
	}
	for i, v := range in.Values {
		if err := checkParam(v); err != nil {
			return "", nil, fmt.Errorf("%s[%d]: %w", in.Field, i, err)
		}
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(in.Values)), ", ")
	params := make([]any, len(in.Values))
	copy(params, in.Values)
	return fmt.Sprintf("%s IN (%s)", in.Field, marks), params, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// checkParam rejects values database/sql cannot bind.
func checkParam(v any) error {
	switch v.(type) {
	case nil, string, []byte, bool, int, int32, int64, float64:
		return nil
	default:
		return fmt.Errorf("unsupported parameter type %T", v)
	}
}

// Batches splits n items into consecutive [start, end) ranges of at most
// size items. size <= 0 uses DefaultBatchSize.
func Batches(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}
