package resource

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors shared across layers.
var (
	// ErrDefinitionNotFound reports an unknown resource key or route in a
	// RawDefinitionStore.
	ErrDefinitionNotFound = errors.New("resource definition not found")

	// ErrVersionConflict reports that a guarded write found a different
	// stored version token than expected.
	ErrVersionConflict = errors.New("version conflict")

	// ErrRecordExists reports a create that supplied a key already in use.
	ErrRecordExists = errors.New("record already exists")

	// ErrCrossBackendRelation reports a relation whose target resource
	// lives on a different backend kind. Such contracts are rejected at
	// build time.
	ErrCrossBackendRelation = errors.New("relation targets a different backend")
)

// ValidationError maps field API names to the messages collected for them.
// It is always surfaced to the caller and never retried.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add calls.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message for the given field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Any reports whether at least one message has been recorded.
func (e *ValidationError) Any() bool {
	return len(e.Fields) > 0
}

// Error renders the collected messages, fields in sorted order.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError reports an unknown resource, or a record that is absent or
// soft-deleted. Get paths return a nil result instead; Update and Delete
// fail with this error.
type NotFoundError struct {
	Resource string
	ID       string // Empty when the resource itself is unknown.
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("resource %q not found", e.Resource)
	}
	return fmt.Sprintf("record %q not found in resource %q", e.ID, e.Resource)
}

// ConcurrencyError reports a stale version token on update. It is surfaced
// directly, never silently retried or merged.
type ConcurrencyError struct {
	Resource string
	ID       string
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrency conflict on record %q in resource %q", e.ID, e.Resource)
}

// OperationDisabledError reports that the contract marks the operation
// unavailable for the resource.
type OperationDisabledError struct {
	Resource string
	Op       Operation
}

func (e *OperationDisabledError) Error() string {
	return fmt.Sprintf("operation %s is disabled for resource %q", e.Op, e.Resource)
}
