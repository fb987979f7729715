package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// HookContext is the mutable state handed to hooks. Before hooks for
// Create and Update may rewrite Payload; read hooks and after hooks may
// rewrite Result in place.
type HookContext struct {
	Contract *resource.Contract
	Op       resource.Operation
	RecordID string
	Payload  resource.Document
	Result   resource.Document
}

// HookFunc is one hook callback. A non-nil error aborts the operation.
type HookFunc func(ctx context.Context, hc *HookContext) error

// Hook is a registered callback. Resource is a resource key for scoped
// hooks or empty for global hooks. Hooks fire in ascending Order;
// registration order breaks ties.
type Hook struct {
	Resource string
	Order    int
	Fn       HookFunc
}

// HookDispatcher holds before and after hooks per operation plus read
// hooks that fire once per projected record on Get and List.
type HookDispatcher struct {
	mu     sync.RWMutex
	before map[resource.Operation][]Hook
	after  map[resource.Operation][]Hook
	read   []Hook
}

// NewHookDispatcher returns an empty dispatcher.
func NewHookDispatcher() *HookDispatcher {
	return &HookDispatcher{
		before: make(map[resource.Operation][]Hook),
		after:  make(map[resource.Operation][]Hook),
	}
}

// Before registers a hook ahead of the given operation.
func (d *HookDispatcher) Before(op resource.Operation, h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.before[op] = append(d.before[op], h)
}

// After registers a hook behind the given operation.
func (d *HookDispatcher) After(op resource.Operation, h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.after[op] = append(d.after[op], h)
}

// Read registers a per-record hook that runs for every document projected
// by Get and List.
func (d *HookDispatcher) Read(h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.read = append(d.read, h)
}

// selectHooks copies the hooks matching the scope, sorted by Order. The
// sort is stable so equal orders keep registration order.
func selectHooks(hooks []Hook, resourceKey string, global bool) []Hook {
	var out []Hook
	for _, h := range hooks {
		if global && h.Resource == "" {
			out = append(out, h)
		}
		if !global && h.Resource == resourceKey {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (d *HookDispatcher) run(ctx context.Context, hooks []Hook, hc *HookContext, global bool) error {
	for _, h := range selectHooks(hooks, hc.Contract.Key, global) {
		if err := h.Fn(ctx, hc); err != nil {
			return err
		}
	}
	return nil
}

// RunBeforeGlobal fires global before hooks for the operation.
func (d *HookDispatcher) RunBeforeGlobal(ctx context.Context, hc *HookContext) error {
	d.mu.RLock()
	hooks := d.before[hc.Op]
	d.mu.RUnlock()
	return d.run(ctx, hooks, hc, true)
}

// RunBeforeResource fires resource-scoped before hooks for the operation.
func (d *HookDispatcher) RunBeforeResource(ctx context.Context, hc *HookContext) error {
	d.mu.RLock()
	hooks := d.before[hc.Op]
	d.mu.RUnlock()
	return d.run(ctx, hooks, hc, false)
}

// RunAfterGlobal fires global after hooks for the operation.
func (d *HookDispatcher) RunAfterGlobal(ctx context.Context, hc *HookContext) error {
	d.mu.RLock()
	hooks := d.after[hc.Op]
	d.mu.RUnlock()
	return d.run(ctx, hooks, hc, true)
}

// RunAfterResource fires resource-scoped after hooks for the operation.
func (d *HookDispatcher) RunAfterResource(ctx context.Context, hc *HookContext) error {
	d.mu.RLock()
	hooks := d.after[hc.Op]
	d.mu.RUnlock()
	return d.run(ctx, hooks, hc, false)
}

// RunRead fires read hooks, global then resource-scoped, for one
// projected document held in hc.Result.
func (d *HookDispatcher) RunRead(ctx context.Context, hc *HookContext) error {
	d.mu.RLock()
	hooks := make([]Hook, len(d.read))
	copy(hooks, d.read)
	d.mu.RUnlock()
	if err := d.run(ctx, hooks, hc, true); err != nil {
		return err
	}
	return d.run(ctx, hooks, hc, false)
}
