package engine

import (
	"context"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/MoslemBenDhaou/datasurface/pkg/query"
	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// expandLimit bounds the records fetched for one toMany expansion.
const expandLimit = 200

// expandRelations resolves the requested relations of one projected
// document in place. Names outside the expandable allowlist are dropped
// silently; an empty request expands the contract's default set. Nested
// documents expand their own default set while depth remains.
func (e *Engine) expandRelations(ctx context.Context, c *resource.Contract, doc resource.Document, rec *resource.StoredRecord, names []string, depth int) error {
	if depth <= 0 {
		return nil
	}
	for _, name := range effectiveExpand(c, names) {
		rel, _ := c.Relation(name)
		target, err := e.contracts.GetByKey(ctx, rel.Target)
		if err != nil {
			return err
		}
		switch rel.Kind {
		case resource.RelationToOne:
			if err := e.expandToOne(ctx, target, rel, doc, rec, depth); err != nil {
				return err
			}
		case resource.RelationToMany:
			if err := e.expandToMany(ctx, target, rel, doc, rec, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

// effectiveExpand filters the request against the allowlist, falling back
// to the default expand set when the caller named none.
func effectiveExpand(c *resource.Contract, names []string) []string {
	if len(names) == 0 {
		return c.Read.DefaultExpand
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		rel, ok := c.Relation(name)
		if !ok || !rel.ExpandAllowed {
			continue
		}
		out = append(out, rel.APIName)
	}
	return out
}

// expandToOne follows the foreign key held on this record. A missing or
// null key, or a dangling reference, expands to an explicit null.
func (e *Engine) expandToOne(ctx context.Context, target *resource.Contract, rel *resource.RelationContract, doc resource.Document, rec *resource.StoredRecord, depth int) error {
	raw, ok := rec.Document[rel.ForeignKey]
	if !ok || raw == nil {
		doc[rel.APIName] = nil
		return nil
	}
	id, err := cast.ToStringE(raw)
	if err != nil || id == "" {
		doc[rel.APIName] = nil
		return nil
	}
	found, err := e.store.Get(ctx, target.Key, id)
	if err != nil {
		return err
	}
	if found == nil {
		e.logger.Debug("dangling relation",
			zap.String("resource", rec.ResourceKey),
			zap.String("relation", rel.APIName),
			zap.String("target_id", id))
		doc[rel.APIName] = nil
		return nil
	}
	child := projectRecord(target, resource.OpGet, nil, found)
	if err := e.expandRelations(ctx, target, child, found, nil, depth-1); err != nil {
		return err
	}
	doc[rel.APIName] = child
	return nil
}

// expandToMany resolves the related set. byIdList relations read the id
// list stored on this record; reverse relations list target records whose
// foreign key points back here.
func (e *Engine) expandToMany(ctx context.Context, target *resource.Contract, rel *resource.RelationContract, doc resource.Document, rec *resource.StoredRecord, depth int) error {
	var found []*resource.StoredRecord
	var err error
	if rel.WriteMode == resource.WriteByIDList {
		ids := cast.ToStringSlice(rec.Document[rel.ForeignKey])
		if len(ids) == 0 {
			doc[rel.APIName] = []resource.Document{}
			return nil
		}
		found, err = e.store.ListByIDs(ctx, target.Key, ids)
	} else {
		fk, ok := target.Field(rel.ForeignKey)
		if !ok {
			doc[rel.APIName] = []resource.Document{}
			return nil
		}
		spec := query.ListSpec{
			Predicates: []query.Predicate{{Field: fk, Op: query.OpEq, Arg: rec.RecordID}},
			Limit:      expandLimit,
		}
		found, _, err = e.store.List(ctx, target, spec)
	}
	if err != nil {
		return err
	}
	children := make([]resource.Document, 0, len(found))
	for _, child := range found {
		cd := projectRecord(target, resource.OpGet, nil, child)
		if err := e.expandRelations(ctx, target, cd, child, nil, depth-1); err != nil {
			return err
		}
		children = append(children, cd)
	}
	doc[rel.APIName] = children
	return nil
}
