package resource

import (
	"time"

	"github.com/google/uuid"
)

// NewGUID returns a fresh UUID v7 string. Version tokens and generated
// record keys both use this form.
func NewGUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Document is the schema-less body of one stored record. Values are the
// JSON scalar, array and object forms produced by encoding/json.
type Document map[string]any

// Clone returns a shallow copy of the document. Nested arrays and objects
// are shared; callers that mutate nested values must copy them first.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// StoredRecord is one row of the document store. The record id is always
// string-typed so that int, guid and string logical keys share one schema.
type StoredRecord struct {
	ResourceKey string
	RecordID    string
	Document    Document
	Version     string // Opaque token compared on optimistic writes.
	Deleted     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IndexRow is one typed projection of a single field's value for one
// record. Exactly one slot pointer is non-nil, matching the field's
// scalar type; conversion fallbacks populate the string slot.
type IndexRow struct {
	ResourceKey string
	RecordID    string
	FieldName   string // Field API name.
	String      *string
	Number      *float64
	DateTime    *time.Time
	Bool        *bool
	GUID        *string
}
