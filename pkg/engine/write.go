package engine

import (
	"context"
	"errors"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// Create validates the payload, resolves or generates the record key and
// persists the new document together with its index rows. The projected
// read shape of the new record is returned.
func (e *Engine) Create(ctx context.Context, resourceKey string, payload resource.Document) (resource.Document, error) {
	c, err := e.contract(ctx, resourceKey, resource.OpCreate)
	if err != nil {
		return nil, err
	}
	hc := &HookContext{Contract: c, Op: resource.OpCreate, Payload: canonicalPayload(c, payload)}
	if err := e.hooks.RunBeforeGlobal(ctx, hc); err != nil {
		return nil, err
	}

	var doc resource.Document
	if fn, ok := e.overrides.Lookup(c.Key, resource.OpCreate); ok {
		resp, err := fn(ctx, &Request{Contract: c, Op: resource.OpCreate, Payload: hc.Payload})
		if err != nil {
			return nil, err
		}
		if resp != nil {
			doc = resp.Document
		}
	} else {
		doc, err = e.createDefault(ctx, c, hc)
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

func (e *Engine) createDefault(ctx context.Context, c *resource.Contract, hc *HookContext) (resource.Document, error) {
	if verr := validateCreate(c, hc.Payload); verr != nil {
		return nil, verr
	}
	if err := e.hooks.RunBeforeResource(ctx, hc); err != nil {
		return nil, err
	}

	id, verr := resolveKey(c, hc.Payload)
	if verr != nil {
		return nil, verr
	}
	hc.RecordID = id

	now := e.now().UTC()
	rec := &resource.StoredRecord{
		ResourceKey: c.Key,
		RecordID:    id,
		Document:    buildDocument(c, resource.OpCreate, hc.Payload, id),
		Version:     newVersion(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.Insert(ctx, c, rec); err != nil {
		if errors.Is(err, resource.ErrRecordExists) {
			verr := resource.NewValidationError()
			verr.Add(c.KeyField, msgKeyExists)
			return nil, verr
		}
		return nil, err
	}
	e.logger.Debug("created record",
		zap.String("resource", c.Key),
		zap.String("record_id", id))

	hc.Result = projectRecord(c, resource.OpCreate, nil, rec)
	if err := e.hooks.RunAfterResource(ctx, hc); err != nil {
		return nil, err
	}
	return hc.Result, nil
}

// Update patch-merges the payload over the stored document under the
// contract's concurrency rules and persists the result with a fresh
// version token.
func (e *Engine) Update(ctx context.Context, resourceKey, recordID string, payload resource.Document) (resource.Document, error) {
	c, err := e.contract(ctx, resourceKey, resource.OpUpdate)
	if err != nil {
		return nil, err
	}
	hc := &HookContext{Contract: c, Op: resource.OpUpdate, RecordID: recordID, Payload: canonicalPayload(c, payload)}
	if err := e.hooks.RunBeforeGlobal(ctx, hc); err != nil {
		return nil, err
	}

	var doc resource.Document
	if fn, ok := e.overrides.Lookup(c.Key, resource.OpUpdate); ok {
		resp, err := fn(ctx, &Request{Contract: c, Op: resource.OpUpdate, RecordID: hc.RecordID, Payload: hc.Payload})
		if err != nil {
			return nil, err
		}
		if resp != nil {
			doc = resp.Document
		}
	} else {
		doc, err = e.updateDefault(ctx, c, hc)
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

func (e *Engine) updateDefault(ctx context.Context, c *resource.Contract, hc *HookContext) (resource.Document, error) {
	if verr := validateUpdate(c, hc.Payload); verr != nil {
		return nil, verr
	}

	existing, err := e.store.Get(ctx, c.Key, hc.RecordID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &resource.NotFoundError{Resource: c.Key, ID: hc.RecordID}
	}

	cc := c.Op(resource.OpUpdate).Concurrency
	if cc != nil {
		if raw, ok := hc.Payload[cc.TokenField]; ok && raw != nil {
			token, err := cast.ToStringE(raw)
			if err != nil || token != existing.Version {
				return nil, &resource.ConcurrencyError{Resource: c.Key, ID: hc.RecordID}
			}
		}
	}

	if err := e.hooks.RunBeforeResource(ctx, hc); err != nil {
		return nil, err
	}

	merged := mergePatch(c, existing.Document, hc.Payload)
	merged[c.KeyField] = keyValue(c, existing.RecordID)
	if cc != nil {
		delete(merged, cc.TokenField)
	}

	rec := *existing
	rec.Document = merged
	rec.Version = newVersion()
	rec.UpdatedAt = e.now().UTC()
	if err := e.store.Update(ctx, c, &rec, existing.Version); err != nil {
		if errors.Is(err, resource.ErrVersionConflict) {
			return nil, &resource.ConcurrencyError{Resource: c.Key, ID: hc.RecordID}
		}
		return nil, err
	}
	e.logger.Debug("updated record",
		zap.String("resource", c.Key),
		zap.String("record_id", hc.RecordID))

	hc.Result = projectRecord(c, resource.OpUpdate, nil, &rec)
	if err := e.hooks.RunAfterResource(ctx, hc); err != nil {
		return nil, err
	}
	return hc.Result, nil
}

// resolveKey reads a caller-supplied key from the payload or generates
// one for guid keys. Other key types must be supplied.
func resolveKey(c *resource.Contract, payload resource.Document) (string, *resource.ValidationError) {
	for name, raw := range payload {
		f, ok := c.Field(name)
		if !ok || !f.IsKey || raw == nil {
			continue
		}
		id, err := cast.ToStringE(raw)
		if err != nil || id == "" {
			verr := resource.NewValidationError()
			verr.Add(c.KeyField, "Invalid key value.")
			return "", verr
		}
		return id, nil
	}
	if c.KeyType == resource.TypeGUID {
		return resource.NewGUID(), nil
	}
	verr := resource.NewValidationError()
	verr.Add(c.KeyField, msgKeyRequired)
	return "", verr
}

// canonicalPayload copies the payload with contract field names rewritten
// to their canonical API casing. Field lookups match case-insensitively,
// so the rest of the pipeline must be able to read the map by API name.
// Unknown keys pass through unchanged.
func canonicalPayload(c *resource.Contract, payload resource.Document) resource.Document {
	doc := make(resource.Document, len(payload))
	for name, v := range payload {
		if f, ok := c.Field(name); ok {
			doc[f.APIName] = v
			continue
		}
		doc[name] = v
	}
	return doc
}

// buildDocument assembles the stored document for a create: allowed
// payload fields under their canonical names, declared defaults for
// absent fields, and the typed key value.
func buildDocument(c *resource.Contract, op resource.Operation, payload resource.Document, id string) resource.Document {
	input := c.Op(op).Input
	doc := resource.Document{}
	for name, v := range payload {
		if f, ok := c.Field(name); ok {
			if f.IsKey {
				continue
			}
			if input[f.APIName] {
				doc[f.APIName] = v
			}
			continue
		}
		if input[name] {
			doc[name] = v
		}
	}
	for i := range c.Fields {
		f := &c.Fields[i]
		if !f.InCreate || f.Default == nil {
			continue
		}
		if _, ok := doc[f.APIName]; !ok {
			doc[f.APIName] = f.Default
		}
	}
	doc[c.KeyField] = keyValue(c, id)
	return doc
}

// mergePatch lays the payload's allowed fields over a copy of the stored
// document. Explicit nulls overwrite; absent fields are untouched.
func mergePatch(c *resource.Contract, stored, payload resource.Document) resource.Document {
	input := c.Op(resource.OpUpdate).Input
	merged := stored.Clone()
	for name, v := range payload {
		if f, ok := c.Field(name); ok {
			if f.IsKey {
				continue
			}
			if input[f.APIName] {
				merged[f.APIName] = v
			}
			continue
		}
		if input[name] {
			merged[name] = v
		}
	}
	return merged
}
