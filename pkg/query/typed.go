package query

import (
	"fmt"
	"strings"
	"time"
)

// TypedTranslator renders predicates against native columns of a typed
// (relational) table. The relational executor lives outside this module;
// the translator only guarantees that both backends give the grammar the
// same meaning.
type TypedTranslator struct {
	// Table prefixes every column reference. It must come from trusted
	// metadata, never from caller input: column and table names cannot
	// be parameterized.
	Table string

	// Column maps a field API name to its column name. Defaults to
	// snake_case of the API name.
	Column func(apiName string) string
}

// column resolves the qualified column reference for a field.
func (t *TypedTranslator) column(apiName string) string {
	name := toSnakeCase(apiName)
	if t.Column != nil {
		name = t.Column(apiName)
	}
	if t.Table == "" {
		return name
	}
	return t.Table + "." + name
}

// Compare renders one predicate as a native-column condition.
func (t *TypedTranslator) Compare(p Predicate) (string, []any) {
	col := t.column(p.Field.APIName)
	switch p.Op {
	case OpIsNull:
		if p.IsNull {
			return col + " IS NULL", nil
		}
		return col + " IS NOT NULL", nil
	case OpIn:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(p.Args)), ", ")
		return col + " IN (" + placeholders + ")", normalizeArgs(p.Args)
	case OpContains:
		return col + " LIKE ? ESCAPE '\\'", []any{"%" + likeEscape(p.Value) + "%"}
	case OpStarts:
		return col + " LIKE ? ESCAPE '\\'", []any{likeEscape(p.Value) + "%"}
	case OpEnds:
		return col + " LIKE ? ESCAPE '\\'", []any{"%" + likeEscape(p.Value)}
	default:
		return fmt.Sprintf("%s %s ?", col, comparisonSQL(p.Op)), []any{normalizeArg(p.Arg)}
	}
}

// OrderKey renders one sort key as an ORDER BY expression.
func (t *TypedTranslator) OrderKey(k SortKey) (string, []any) {
	dir := "ASC"
	if k.Desc {
		dir = "DESC"
	}
	return t.column(k.Field.APIName) + " " + dir, nil
}

// comparisonSQL maps a comparison operator to its SQL form.
func comparisonSQL(op Op) string {
	switch op {
	case OpNeq:
		return "<>"
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "="
	}
}

// normalizeArg converts parsed values to driver-friendly forms. Timestamps
// bind as RFC 3339 text, matching the stored column format.
func normalizeArg(v any) any {
	if ts, ok := v.(time.Time); ok {
		return ts.UTC().Format(time.RFC3339)
	}
	return v
}

func normalizeArgs(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = normalizeArg(v)
	}
	return out
}

// likeEscape escapes LIKE wildcards in caller-supplied text.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// toSnakeCase converts a camelCase API name to snake_case.
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
