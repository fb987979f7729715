// Package query implements the filter, sort and paging grammar shared by
// both storage backends, and the Translator seam through which each
// backend supplies its own field-comparison primitive.
//
// The grammar is the stable external contract of the list surface:
// filter values are "op:value" strings (a bare value means eq), sort is a
// comma list of field names with a leading '-' for descending, and paging
// is a 1-based page plus a clamped page size.
package query

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// Op is a filter comparison operator.
type Op string

// Supported operators. Names in filter specs match case-insensitively.
const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains"
	OpStarts   Op = "starts"
	OpEnds     Op = "ends"
	OpIn       Op = "in"
	OpIsNull   Op = "isnull"
)

var knownOps = map[Op]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpContains: true, OpStarts: true, OpEnds: true, OpIn: true, OpIsNull: true,
}

// opsForSlot lists the operators meaningful for each index slot. isnull is
// legal for every type and checked separately.
var opsForSlot = map[string]map[Op]bool{
	resource.SlotNumber: {
		OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
		// in still works as OR-of-eq on numeric fields.
		OpIn: true,
	},
	resource.SlotDateTime: {
		OpEq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	},
	resource.SlotBool: {OpEq: true, OpNeq: true},
	resource.SlotGUID: {OpEq: true, OpNeq: true, OpIn: true},
	resource.SlotString: {
		OpEq: true, OpNeq: true, OpContains: true, OpStarts: true, OpEnds: true, OpIn: true,
	},
}

// Predicate is one parsed, allowlist-checked filter condition. Arg holds
// the value converted to the field's comparison type (float64, bool,
// time.Time or string); Args holds the alternatives of an in filter.
type Predicate struct {
	Field  *resource.FieldContract
	Op     Op
	Value  string
	Arg    any
	Args   []any
	IsNull bool // Value of an isnull filter.
}

// SortKey is one parsed ordering component.
type SortKey struct {
	Field *resource.FieldContract
	Desc  bool
}

// ParseFilters turns a filter map into predicates. Fields outside the
// contract's filterable allowlist are dropped silently, so stray client
// parameters never break a list call. Unparsable values and operators that
// do not fit the field type raise a ValidationError. Field order in the
// result is sorted for deterministic compilation.
func ParseFilters(c *resource.Contract, filters map[string]string) ([]Predicate, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	verr := resource.NewValidationError()
	var preds []Predicate
	for _, name := range names {
		field, ok := c.Field(name)
		if !ok || !c.Query.Filterable[field.APIName] {
			continue
		}
		p, err := parsePredicate(field, filters[name])
		if err != nil {
			verr.Add(field.APIName, err.Error())
			continue
		}
		preds = append(preds, p)
	}
	if verr.Any() {
		return nil, verr
	}
	return preds, nil
}

// parsePredicate splits an "op:value" spec and converts the value to the
// field's comparison type. A spec with no recognized op prefix is an eq
// match on the whole string.
func parsePredicate(field *resource.FieldContract, spec string) (Predicate, error) {
	op := OpEq
	value := spec
	if i := strings.Index(spec, ":"); i > 0 {
		candidate := Op(strings.ToLower(spec[:i]))
		if knownOps[candidate] {
			op = candidate
			value = spec[i+1:]
		}
	}

	if op == OpIsNull {
		want, err := strconv.ParseBool(value)
		if err != nil {
			return Predicate{}, &filterError{"isnull takes true or false."}
		}
		return Predicate{Field: field, Op: op, Value: value, IsNull: want}, nil
	}

	slot := resource.SlotForType(field.Type)
	if !opsForSlot[slot][op] {
		return Predicate{}, &filterError{"Operator " + string(op) + " is not supported for this field."}
	}

	p := Predicate{Field: field, Op: op, Value: value}
	if op == OpIn {
		for _, alt := range strings.Split(value, "|") {
			arg, err := convertValue(slot, alt)
			if err != nil {
				return Predicate{}, err
			}
			p.Args = append(p.Args, arg)
		}
		return p, nil
	}

	arg, err := convertValue(slot, value)
	if err != nil {
		return Predicate{}, err
	}
	p.Arg = arg
	return p, nil
}

// convertValue parses a filter value into the comparison type of a slot.
func convertValue(slot, value string) (any, error) {
	switch slot {
	case resource.SlotNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, &filterError{"Value is not a number."}
		}
		return n, nil
	case resource.SlotBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, &filterError{"Value is not a boolean."}
		}
		return b, nil
	case resource.SlotDateTime:
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, &filterError{"Value is not an RFC 3339 timestamp."}
		}
		return t, nil
	default:
		return value, nil
	}
}

// filterError is a single-message value error raised during parsing.
type filterError struct{ msg string }

func (e *filterError) Error() string { return e.msg }

// ParseSort turns a sort spec into ordering keys. Field names outside the
// sortable allowlist are dropped. An empty result falls back to the
// contract's default sort spec; if that also yields nothing, the caller
// applies the built-in most-recently-updated-first order.
func ParseSort(c *resource.Contract, spec string) []SortKey {
	keys := parseSortSpec(c, spec)
	if len(keys) == 0 && c.Query.DefaultSort != "" && c.Query.DefaultSort != spec {
		keys = parseSortSpec(c, c.Query.DefaultSort)
	}
	return keys
}

func parseSortSpec(c *resource.Contract, spec string) []SortKey {
	var keys []SortKey
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")
		field, ok := c.Field(name)
		if !ok || !c.Query.Sortable[field.APIName] {
			continue
		}
		keys = append(keys, SortKey{Field: field, Desc: desc})
	}
	return keys
}

// SearchFields returns the fields a free-text search term applies to.
// An empty result means search is ignored for the resource.
func SearchFields(c *resource.Contract) []*resource.FieldContract {
	var fields []*resource.FieldContract
	for name := range c.Query.Searchable {
		if f, ok := c.Field(name); ok {
			fields = append(fields, f)
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].APIName < fields[j].APIName })
	return fields
}

// ClampPage clamps a page number to minimum 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampPageSize clamps a page size to [1, max].
func ClampPageSize(size, max int) int {
	if size < 1 {
		return 1
	}
	if size > max {
		return max
	}
	return size
}
