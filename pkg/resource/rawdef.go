package resource

import (
	"strings"
	"time"
)

// RawField is the declarative description of one field as authored in a
// resource definition.
type RawField struct {
	Name                string   `json:"name"`
	APIName             string   `json:"apiName,omitempty"` // Defaults to Name.
	Type                string   `json:"type"`
	Nullable            bool     `json:"nullable,omitempty"`
	InRead              bool     `json:"inRead,omitempty"`
	InCreate            bool     `json:"inCreate,omitempty"`
	InUpdate            bool     `json:"inUpdate,omitempty"`
	Filterable          bool     `json:"filterable,omitempty"`
	Sortable            bool     `json:"sortable,omitempty"`
	Searchable          bool     `json:"searchable,omitempty"`
	Hidden              bool     `json:"hidden,omitempty"`
	Immutable           bool     `json:"immutable,omitempty"`
	Computed            bool     `json:"computed,omitempty"`
	Expression          string   `json:"expression,omitempty"`
	Default             any      `json:"default,omitempty"`
	Required            bool     `json:"required,omitempty"` // Required on create.
	MinLength           *int     `json:"minLength,omitempty"`
	MaxLength           *int     `json:"maxLength,omitempty"`
	Min                 *float64 `json:"min,omitempty"`
	Max                 *float64 `json:"max,omitempty"`
	Pattern             string   `json:"pattern,omitempty"`
	AllowedValues       []string `json:"allowedValues,omitempty"`
	ConcurrencyToken    bool     `json:"concurrencyToken,omitempty"`
	ConcurrencyRequired bool     `json:"concurrencyRequired,omitempty"`
}

// apiName returns the effective API name of the field.
func (f RawField) apiName() string {
	if f.APIName != "" {
		return f.APIName
	}
	return f.Name
}

// RawRelation is the declarative description of one relation.
type RawRelation struct {
	Name          string `json:"name"`
	APIName       string `json:"apiName,omitempty"`
	Kind          string `json:"kind"` // toOne or toMany.
	Target        string `json:"target"`
	ExpandAllowed bool   `json:"expandAllowed,omitempty"`
	DefaultExpand bool   `json:"defaultExpand,omitempty"`
	WriteMode     string `json:"writeMode,omitempty"` // Defaults to disabled.
	WriteField    string `json:"writeField,omitempty"`
	Required      bool   `json:"required,omitempty"`
	ForeignKey    string `json:"foreignKey,omitempty"`
}

// apiName returns the effective API name of the relation.
func (r RawRelation) apiName() string {
	if r.APIName != "" {
		return r.APIName
	}
	return r.Name
}

// RawDefinition is the authored description of a resource, as stored by a
// RawDefinitionStore. BuildContract normalizes it into a Contract.
type RawDefinition struct {
	Key            string               `json:"key"`
	Route          string               `json:"route"`
	Backend        string               `json:"backend"` // Defaults to dynamic.
	KeyName        string               `json:"keyName"`
	KeyType        string               `json:"keyType"`
	MaxPageSize    int                  `json:"maxPageSize,omitempty"`
	MaxExpandDepth int                  `json:"maxExpandDepth,omitempty"`
	DefaultSort    string               `json:"defaultSort,omitempty"`
	Disabled       []string             `json:"disabled,omitempty"` // Operation names.
	Fields         []RawField           `json:"fields"`
	Relations      []RawRelation        `json:"relations,omitempty"`
	Policies       map[string]string    `json:"policies,omitempty"`
	UpdatedAt      time.Time            `json:"-"` // Set by the definition store.
}

// Validate checks that the definition is well-formed: key, route, key name
// and type present, field types recognized, and field/relation API names
// unique case-insensitively. Returns a ValidationError listing every
// problem found.
func (d *RawDefinition) Validate() error {
	verr := NewValidationError()
	if d.Key == "" {
		verr.Add("key", "Resource key is required.")
	}
	if d.Route == "" {
		verr.Add("route", "Route is required.")
	}
	if d.KeyName == "" {
		verr.Add("keyName", "Key field name is required.")
	}
	if !IsValidFieldType(d.KeyType) {
		verr.Add("keyType", "Unknown key type "+quote(d.KeyType)+".")
	}
	if d.Backend != "" && d.Backend != BackendDynamic && d.Backend != BackendTyped {
		verr.Add("backend", "Unknown backend "+quote(d.Backend)+".")
	}

	seen := map[string]bool{}
	for _, f := range d.Fields {
		name := strings.ToLower(f.apiName())
		if name == "" {
			verr.Add("fields", "Field with empty name.")
			continue
		}
		if seen[name] {
			verr.Add(f.apiName(), "Duplicate field name.")
		}
		seen[name] = true
		if !IsValidFieldType(f.Type) {
			verr.Add(f.apiName(), "Unknown field type "+quote(f.Type)+".")
		}
	}
	for _, r := range d.Relations {
		name := strings.ToLower(r.apiName())
		if name == "" {
			verr.Add("relations", "Relation with empty name.")
			continue
		}
		if seen[name] {
			verr.Add(r.apiName(), "Duplicate relation name.")
		}
		seen[name] = true
		if r.Target == "" {
			verr.Add(r.apiName(), "Relation target is required.")
		}
		if r.Kind != RelationToOne && r.Kind != RelationToMany {
			verr.Add(r.apiName(), "Unknown relation kind "+quote(r.Kind)+".")
		}
	}

	if verr.Any() {
		return verr
	}
	return nil
}

// quote quotes a value for use in a validation message.
func quote(s string) string {
	return `"` + s + `"`
}
