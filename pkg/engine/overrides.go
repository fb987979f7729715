package engine

import (
	"context"
	"sync"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// Request carries the inputs of one overridden operation. Only the
// fields relevant to the operation are set: Payload for Create and
// Update, RecordID for Get, Update and Delete, Query for List, Hard for
// Delete.
type Request struct {
	Contract *resource.Contract
	Op       resource.Operation
	RecordID string
	Payload  resource.Document
	Query    ListQuery
	Hard     bool
}

// Response carries an override's output. Document answers Get, Create
// and Update; List answers List; Delete leaves both nil. A nil Response
// (or nil List) from a list override reads as an empty result; a nil
// Response from a get override reads as an absent record.
type Response struct {
	Document resource.Document
	List     *ListResult
}

// OverrideFunc replaces the default body of one operation. Global before
// and after hooks still wrap the call.
type OverrideFunc func(ctx context.Context, req *Request) (*Response, error)

// OverrideRegistry maps (resource key, operation) to a replacement body.
type OverrideRegistry struct {
	mu sync.RWMutex
	m  map[string]map[resource.Operation]OverrideFunc
}

// NewOverrideRegistry returns an empty registry.
func NewOverrideRegistry() *OverrideRegistry {
	return &OverrideRegistry{m: make(map[string]map[resource.Operation]OverrideFunc)}
}

// Register installs fn as the body of op on the given resource,
// replacing any prior registration.
func (r *OverrideRegistry) Register(resourceKey string, op resource.Operation, fn OverrideFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byOp, ok := r.m[resourceKey]
	if !ok {
		byOp = make(map[resource.Operation]OverrideFunc)
		r.m[resourceKey] = byOp
	}
	byOp[op] = fn
}

// Lookup returns the override for (resource, op) when one is registered.
func (r *OverrideRegistry) Lookup(resourceKey string, op resource.Operation) (OverrideFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.m[resourceKey][op]
	return fn, ok
}
