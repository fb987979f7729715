package resource

import "strings"

// Backend kinds determine which storage family serves a resource.
const (
	BackendDynamic = "dynamic"
	BackendTyped   = "typed"
)

// Operation names a CRUD operation on a resource.
type Operation string

// The five operations every contract describes.
const (
	OpList   Operation = "list"
	OpGet    Operation = "get"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// AllOperations lists operations in pipeline order.
var AllOperations = []Operation{OpList, OpGet, OpCreate, OpUpdate, OpDelete}

// Field scalar types. Array types hold homogeneous elements of the named
// scalar type.
const (
	TypeInt32       = "int32"
	TypeInt64       = "int64"
	TypeDecimal     = "decimal"
	TypeBoolean     = "boolean"
	TypeGUID        = "guid"
	TypeDateTime    = "datetime"
	TypeString      = "string"
	TypeEnum        = "enum"
	TypeJSON        = "json"
	TypeStringArray = "string[]"
	TypeInt64Array  = "int64[]"
	TypeGUIDArray   = "guid[]"
)

// validFieldTypes is the set of recognized field type names.
var validFieldTypes = map[string]bool{
	TypeInt32:       true,
	TypeInt64:       true,
	TypeDecimal:     true,
	TypeBoolean:     true,
	TypeGUID:        true,
	TypeDateTime:    true,
	TypeString:      true,
	TypeEnum:        true,
	TypeJSON:        true,
	TypeStringArray: true,
	TypeInt64Array:  true,
	TypeGUIDArray:   true,
}

// IsValidFieldType reports whether the given string is a recognized field type.
func IsValidFieldType(t string) bool {
	return validFieldTypes[t]
}

// IsNumericType reports whether values of the type compare numerically.
func IsNumericType(t string) bool {
	return t == TypeInt32 || t == TypeInt64 || t == TypeDecimal
}

// Index slots. Every index row populates exactly one typed slot, selected
// by the owning field's scalar type.
const (
	SlotString   = "string"
	SlotNumber   = "number"
	SlotDateTime = "datetime"
	SlotBool     = "bool"
	SlotGUID     = "guid"
)

// SlotForType returns the index slot used for values of the given field type.
// Enum, json and array values index through the string slot.
func SlotForType(t string) string {
	switch t {
	case TypeInt32, TypeInt64, TypeDecimal:
		return SlotNumber
	case TypeBoolean:
		return SlotBool
	case TypeGUID:
		return SlotGUID
	case TypeDateTime:
		return SlotDateTime
	default:
		return SlotString
	}
}

// Relation kinds.
const (
	RelationToOne  = "toOne"
	RelationToMany = "toMany"
)

// Relation write modes.
const (
	WriteDisabled = "disabled"
	WriteByID     = "byId"
	WriteByIDList = "byIdList"
)

// Concurrency modes. An absent concurrency contract means updates are
// last-writer-wins.
const (
	ConcurrencyOptimistic = "optimistic"
)

// FieldValidation carries the declarative constraints checked on write.
// Pointer fields distinguish "not set" from a zero bound.
type FieldValidation struct {
	RequiredOnCreate bool
	MinLength        *int
	MaxLength        *int
	Min              *float64
	Max              *float64
	Pattern          string
	AllowedValues    []string
}

// FieldContract describes one scalar or array attribute of a resource.
type FieldContract struct {
	Name       string // Canonical name from the raw definition.
	APIName    string // Wire name; unique per resource, case-insensitively.
	Type       string // One of the Type constants.
	Nullable   bool
	InRead     bool
	InCreate   bool
	InUpdate   bool
	Filterable bool
	Sortable   bool
	Searchable bool
	Hidden     bool // Hard deny: never read or written.
	Immutable  bool
	Computed   bool   // Read-only, derived.
	Expression string // Derivation expression for computed fields.
	Default    any
	Validation FieldValidation
	IsKey      bool
}

// RelationContract describes a typed reference to another resource.
type RelationContract struct {
	Name          string
	APIName       string
	Kind          string // RelationToOne or RelationToMany.
	Target        string // Target resource key.
	ExpandAllowed bool
	DefaultExpand bool
	WriteMode     string // WriteDisabled, WriteByID or WriteByIDList.
	WriteField    string // Payload field carrying the id or id list.
	Required      bool   // Write field required on create.
	ForeignKey    string // Field holding the reference; on the target side for toMany.
}

// ConcurrencyContract decides whether updates must carry a version token
// and how it is checked.
type ConcurrencyContract struct {
	Mode       string // ConcurrencyOptimistic.
	TokenField string // API name of the token field.
	Required   bool   // Token must be present on every update.
}

// OperationContract describes the shape and rules of one operation.
type OperationContract struct {
	Enabled     bool
	Input       map[string]bool // Allowed payload fields.
	Output      map[string]bool // Fields present in the projected result.
	Required    map[string]bool // Fields that must be present on create.
	Immutable   map[string]bool // Fields rejected in update payloads.
	Concurrency *ConcurrencyContract
}

// QueryContract holds the list-query limits and allowlists.
type QueryContract struct {
	MaxPageSize int
	Filterable  map[string]bool
	Sortable    map[string]bool
	Searchable  map[string]bool
	DefaultSort string // Sort spec applied when the caller supplies none.
}

// ReadContract holds the relation-expansion limits and allowlists.
type ReadContract struct {
	Expandable     map[string]bool
	DefaultExpand  []string
	MaxExpandDepth int
}

// Contract is the normalized, immutable description of one resource.
// Contracts are built once by BuildContract and cached by Provider;
// callers must not mutate them.
type Contract struct {
	Key        string // Stable resource identifier.
	Route      string
	Backend    string // BackendDynamic or BackendTyped.
	KeyField   string // API name of the key field.
	KeyType    string
	Query      QueryContract
	Read       ReadContract
	Fields     []FieldContract
	Relations  []RelationContract
	Operations map[Operation]OperationContract
	Policies   map[Operation]string // Security policy name per operation.

	fieldsByAPI    map[string]*FieldContract
	relationsByAPI map[string]*RelationContract
}

// Field returns the field contract with the given API name,
// matched case-insensitively.
func (c *Contract) Field(apiName string) (*FieldContract, bool) {
	f, ok := c.fieldsByAPI[strings.ToLower(apiName)]
	return f, ok
}

// Relation returns the relation contract with the given API name,
// matched case-insensitively.
func (c *Contract) Relation(apiName string) (*RelationContract, bool) {
	r, ok := c.relationsByAPI[strings.ToLower(apiName)]
	return r, ok
}

// Op returns the operation contract for op. A missing entry reports as
// disabled.
func (c *Contract) Op(op Operation) OperationContract {
	return c.Operations[op]
}

// KeyFieldContract returns the key field's contract. The builder
// guarantees it exists.
func (c *Contract) KeyFieldContract() *FieldContract {
	f, _ := c.Field(c.KeyField)
	return f
}
