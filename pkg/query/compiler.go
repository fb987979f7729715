package query

import (
	"strings"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// Translator supplies a backend's primitive for comparing one field to a
// value. The dynamic backend resolves comparisons through the secondary
// index; the typed backend compares native columns. Everything above this
// seam (grammar, allowlists, AND/OR combination) is shared.
type Translator interface {
	// Compare renders one predicate as a SQL fragment with positional
	// '?' placeholders.
	Compare(p Predicate) (string, []any)

	// OrderKey renders one sort key as an ORDER BY expression.
	OrderKey(k SortKey) (string, []any)
}

// BuildWhere AND-combines predicates into a single condition. An empty
// predicate list yields an empty clause.
func BuildWhere(tr Translator, preds []Predicate) (string, []any) {
	if len(preds) == 0 {
		return "", nil
	}
	conditions := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		sql, a := tr.Compare(p)
		conditions = append(conditions, sql)
		args = append(args, a...)
	}
	return strings.Join(conditions, " AND "), args
}

// BuildSearch OR-combines a contains comparison of term across the given
// fields. Returns an empty clause when there are no searchable fields or
// the term is empty.
func BuildSearch(tr Translator, fields []*resource.FieldContract, term string) (string, []any) {
	if term == "" || len(fields) == 0 {
		return "", nil
	}
	conditions := make([]string, 0, len(fields))
	var args []any
	for _, f := range fields {
		sql, a := tr.Compare(Predicate{Field: f, Op: OpContains, Value: term, Arg: term})
		conditions = append(conditions, sql)
		args = append(args, a...)
	}
	return "(" + strings.Join(conditions, " OR ") + ")", args
}

// BuildOrderBy chains sort keys into an ORDER BY body: the first key is
// the primary order, later keys break ties.
func BuildOrderBy(tr Translator, keys []SortKey) (string, []any) {
	if len(keys) == 0 {
		return "", nil
	}
	exprs := make([]string, 0, len(keys))
	var args []any
	for _, k := range keys {
		sql, a := tr.OrderKey(k)
		exprs = append(exprs, sql)
		args = append(args, a...)
	}
	return strings.Join(exprs, ", "), args
}

// ListSpec is a fully parsed, allowlist-checked list query, ready for a
// backend to execute. Offset and Limit are already clamped.
type ListSpec struct {
	Predicates   []Predicate
	SearchTerm   string
	SearchFields []*resource.FieldContract
	Sort         []SortKey
	Offset       int
	Limit        int
}
