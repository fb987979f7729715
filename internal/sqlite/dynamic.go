package sqlite

import (
	"strings"
	"time"

	"github.com/MoslemBenDhaou/datasurface/pkg/query"
	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// dynamicTranslator renders grammar predicates against the index_rows
// table. Fragments assume the outer records table is aliased r; each
// field comparison resolves to a sub-select correlated on resource key,
// and sort keys resolve to correlated scalar lookups.
type dynamicTranslator struct{}

// slotColumn maps an index slot to its column.
func slotColumn(slot string) string {
	switch slot {
	case resource.SlotNumber:
		return "number_value"
	case resource.SlotDateTime:
		return "datetime_value"
	case resource.SlotBool:
		return "bool_value"
	case resource.SlotGUID:
		return "guid_value"
	default:
		return "string_value"
	}
}

// slotArg converts a parsed predicate value to its bound form for the
// slot column.
func slotArg(v any) any {
	switch value := v.(type) {
	case bool:
		if value {
			return 1
		}
		return 0
	case time.Time:
		return formatTime(value)
	case string:
		return value
	default:
		return v
	}
}

// Compare renders one predicate as an index sub-query membership test.
// Records whose field value is absent have no index row and therefore
// never match a typed comparison; isnull tests row existence directly.
func (dynamicTranslator) Compare(p query.Predicate) (string, []any) {
	field := p.Field.APIName
	col := slotColumn(resource.SlotForType(p.Field.Type))

	switch p.Op {
	case query.OpIsNull:
		existsSQL := "EXISTS (SELECT 1 FROM index_rows i WHERE i.resource_key = r.resource_key" +
			" AND i.record_id = r.record_id AND i.field_name = ?)"
		if p.IsNull {
			return "NOT " + existsSQL, []any{field}
		}
		return existsSQL, []any{field}
	case query.OpIn:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(p.Args)), ", ")
		args := []any{field}
		for _, a := range p.Args {
			args = append(args, slotArg(a))
		}
		return memberSQL(col + " IN (" + placeholders + ")"), args
	case query.OpContains:
		return memberSQL(col + " LIKE ? ESCAPE '\\'"), []any{field, "%" + likeEscape(p.Value) + "%"}
	case query.OpStarts:
		return memberSQL(col + " LIKE ? ESCAPE '\\'"), []any{field, likeEscape(p.Value) + "%"}
	case query.OpEnds:
		return memberSQL(col + " LIKE ? ESCAPE '\\'"), []any{field, "%" + likeEscape(p.Value)}
	default:
		return memberSQL(col + " " + comparisonSQL(p.Op) + " ?"), []any{field, slotArg(p.Arg)}
	}
}

// OrderKey renders one sort key as a correlated scalar lookup into the
// record's own index row for the field.
func (dynamicTranslator) OrderKey(k query.SortKey) (string, []any) {
	col := slotColumn(resource.SlotForType(k.Field.Type))
	dir := "ASC"
	if k.Desc {
		dir = "DESC"
	}
	sub := "(SELECT i." + col + " FROM index_rows i WHERE i.resource_key = r.resource_key" +
		" AND i.record_id = r.record_id AND i.field_name = ?)"
	return sub + " " + dir, []any{k.Field.APIName}
}

// memberSQL wraps a slot condition in the per-field record-id sub-query.
func memberSQL(cond string) string {
	return "r.record_id IN (SELECT i.record_id FROM index_rows i" +
		" WHERE i.resource_key = r.resource_key AND i.field_name = ? AND i." + cond + ")"
}

// comparisonSQL maps a comparison operator to its SQL form.
func comparisonSQL(op query.Op) string {
	switch op {
	case query.OpNeq:
		return "<>"
	case query.OpGt:
		return ">"
	case query.OpGte:
		return ">="
	case query.OpLt:
		return "<"
	case query.OpLte:
		return "<="
	default:
		return "="
	}
}

// likeEscape escapes LIKE wildcards in caller-supplied text.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
