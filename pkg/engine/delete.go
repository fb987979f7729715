package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// DeleteOptions selects between the default soft delete and a permanent
// hard delete.
type DeleteOptions struct {
	Hard bool
}

// Delete removes a record. The default is a soft delete: the record
// disappears from reads but stays in storage. Hard deletes remove the
// record and its index rows permanently.
func (e *Engine) Delete(ctx context.Context, resourceKey, recordID string, opts DeleteOptions) error {
	c, err := e.contract(ctx, resourceKey, resource.OpDelete)
	if err != nil {
		return err
	}
	hc := &HookContext{Contract: c, Op: resource.OpDelete, RecordID: recordID}
	if err := e.hooks.RunBeforeGlobal(ctx, hc); err != nil {
		return err
	}

	if fn, ok := e.overrides.Lookup(c.Key, resource.OpDelete); ok {
		if _, err := fn(ctx, &Request{Contract: c, Op: resource.OpDelete, RecordID: hc.RecordID, Hard: opts.Hard}); err != nil {
			return err
		}
	} else if err := e.deleteDefault(ctx, c, hc, opts); err != nil {
		return err
	}

	return e.hooks.RunAfterGlobal(ctx, hc)
}

func (e *Engine) deleteDefault(ctx context.Context, c *resource.Contract, hc *HookContext, opts DeleteOptions) error {
	existing, err := e.store.Get(ctx, c.Key, hc.RecordID)
	if err != nil {
		return err
	}
	if existing == nil {
		return &resource.NotFoundError{Resource: c.Key, ID: hc.RecordID}
	}
	if err := e.hooks.RunBeforeResource(ctx, hc); err != nil {
		return err
	}

	if opts.Hard {
		err = e.store.HardDelete(ctx, c.Key, hc.RecordID)
	} else {
		err = e.store.SoftDelete(ctx, c.Key, hc.RecordID, e.now().UTC())
	}
	if err != nil {
		return err
	}
	e.logger.Debug("deleted record",
		zap.String("resource", c.Key),
		zap.String("record_id", hc.RecordID),
		zap.Bool("hard", opts.Hard))

	return e.hooks.RunAfterResource(ctx, hc)
}
