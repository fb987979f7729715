package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/MoslemBenDhaou/datasurface/pkg/query"
	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// List runs a filtered, sorted, searched and paged query and projects
// every matching record into the read shape.
func (e *Engine) List(ctx context.Context, resourceKey string, q ListQuery) (*ListResult, error) {
	c, err := e.contract(ctx, resourceKey, resource.OpList)
	if err != nil {
		return nil, err
	}
	hc := &HookContext{Contract: c, Op: resource.OpList}
	if err := e.hooks.RunBeforeGlobal(ctx, hc); err != nil {
		return nil, err
	}

	var res *ListResult
	if fn, ok := e.overrides.Lookup(c.Key, resource.OpList); ok {
		resp, err := fn(ctx, &Request{Contract: c, Op: resource.OpList, Query: q})
		if err != nil {
			return nil, err
		}
		if resp != nil {
			res = resp.List
		}
		if res == nil {
			// An override with nothing to return reads as no matches.
			page, size := resolvePaging(c, q)
			res = &ListResult{Items: []resource.Document{}, Page: page, PageSize: size}
		}
	} else {
		res, err = e.listDefault(ctx, c, q)
		if err != nil {
			return nil, err
		}
	}

	if err := e.hooks.RunAfterGlobal(ctx, hc); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) listDefault(ctx context.Context, c *resource.Contract, q ListQuery) (*ListResult, error) {
	preds, err := query.ParseFilters(c, q.Filter)
	if err != nil {
		return nil, err
	}
	sortKeys := query.ParseSort(c, q.Sort)
	page, size := resolvePaging(c, q)

	spec := query.ListSpec{
		Predicates: preds,
		Sort:       sortKeys,
		Offset:     (page - 1) * size,
		Limit:      size,
	}
	if q.Search != "" {
		spec.SearchTerm = q.Search
		spec.SearchFields = query.SearchFields(c)
	}

	records, total, err := e.store.List(ctx, c, spec)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("list",
		zap.String("resource", c.Key),
		zap.Int("page", page),
		zap.Int("page_size", size),
		zap.Int("total", total))

	items := make([]resource.Document, 0, len(records))
	for _, rec := range records {
		doc := projectRecord(c, resource.OpList, q.Fields, rec)
		if err := e.expandRelations(ctx, c, doc, rec, q.Expand, c.Read.MaxExpandDepth); err != nil {
			return nil, err
		}
		hc := &HookContext{Contract: c, Op: resource.OpList, RecordID: rec.RecordID, Result: doc}
		if err := e.hooks.RunRead(ctx, hc); err != nil {
			return nil, err
		}
		items = append(items, hc.Result)
	}
	return &ListResult{Items: items, Page: page, PageSize: size, Total: total}, nil
}

// resolvePaging clamps the requested page and size against the
// contract's limit. A zero size asks for the largest allowed page.
func resolvePaging(c *resource.Contract, q ListQuery) (page, size int) {
	page = query.ClampPage(q.Page)
	size = q.PageSize
	if size == 0 {
		size = c.Query.MaxPageSize
	}
	return page, query.ClampPageSize(size, c.Query.MaxPageSize)
}
