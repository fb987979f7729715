package engine

import (
	"context"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// Get fetches one record by id and projects it into the read shape. A
// missing or soft-deleted record returns (nil, nil) so that transports
// can map absence without error matching.
func (e *Engine) Get(ctx context.Context, resourceKey, recordID string, opts GetOptions) (resource.Document, error) {
	c, err := e.contract(ctx, resourceKey, resource.OpGet)
	if err != nil {
		return nil, err
	}
	hc := &HookContext{Contract: c, Op: resource.OpGet, RecordID: recordID}
	if err := e.hooks.RunBeforeGlobal(ctx, hc); err != nil {
		return nil, err
	}

	var doc resource.Document
	if fn, ok := e.overrides.Lookup(c.Key, resource.OpGet); ok {
		resp, err := fn(ctx, &Request{Contract: c, Op: resource.OpGet, RecordID: hc.RecordID})
		if err != nil {
			return nil, err
		}
		if resp != nil {
			doc = resp.Document
		}
	} else {
		doc, err = e.getDefault(ctx, c, hc.RecordID, opts)
		if err != nil {
			return nil, err
		}
	}

	hc.Result = doc
	if err := e.hooks.RunAfterGlobal(ctx, hc); err != nil {
		return nil, err
	}
	return hc.Result, nil
}

func (e *Engine) getDefault(ctx context.Context, c *resource.Contract, recordID string, opts GetOptions) (resource.Document, error) {
	rec, err := e.store.Get(ctx, c.Key, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	doc := projectRecord(c, resource.OpGet, opts.Fields, rec)
	if err := e.expandRelations(ctx, c, doc, rec, opts.Expand, c.Read.MaxExpandDepth); err != nil {
		return nil, err
	}
	hc := &HookContext{Contract: c, Op: resource.OpGet, RecordID: recordID, Result: doc}
	if err := e.hooks.RunRead(ctx, hc); err != nil {
		return nil, err
	}
	return hc.Result, nil
}
