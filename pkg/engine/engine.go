// Package engine implements the contract-driven CRUD orchestrator: the
// per-operation pipeline of enablement check, hooks, override dispatch,
// validation, store mutation, index rebuild and projection.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MoslemBenDhaou/datasurface/pkg/query"
	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// ContractProvider resolves resource contracts. *resource.Provider is the
// standard implementation.
type ContractProvider interface {
	GetByKey(ctx context.Context, key string) (*resource.Contract, error)
	All(ctx context.Context) ([]*resource.Contract, error)
	GetLastModified(ctx context.Context, key string) (time.Time, error)
}

// DocumentStore persists one structured document per record. Insert and
// Update commit the document and its rebuilt index rows in one unit of
// work; reads implicitly exclude soft-deleted records.
type DocumentStore interface {
	Get(ctx context.Context, resourceKey, recordID string) (*resource.StoredRecord, error)
	List(ctx context.Context, c *resource.Contract, spec query.ListSpec) ([]*resource.StoredRecord, int, error)
	ListByIDs(ctx context.Context, resourceKey string, ids []string) ([]*resource.StoredRecord, error)
	Insert(ctx context.Context, c *resource.Contract, rec *resource.StoredRecord) error
	Update(ctx context.Context, c *resource.Contract, rec *resource.StoredRecord, expectedVersion string) error
	SoftDelete(ctx context.Context, resourceKey, recordID string, now time.Time) error
	HardDelete(ctx context.Context, resourceKey, recordID string) error
}

// IndexService regenerates the secondary index for one record.
type IndexService interface {
	RebuildIndex(ctx context.Context, c *resource.Contract, recordID string, doc resource.Document) error
}

// Engine orchestrates CRUD operations against a document store using the
// resource contracts served by its provider. Operations are independent
// units of work: no cross-record locking happens here, and write
// correctness rests on the store's version-token guard.
type Engine struct {
	contracts ContractProvider
	store     DocumentStore
	index     IndexService
	hooks     *HookDispatcher
	overrides *OverrideRegistry
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithHooks sets a pre-populated hook dispatcher.
func WithHooks(hooks *HookDispatcher) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithOverrides sets a pre-populated override registry.
func WithOverrides(overrides *OverrideRegistry) Option {
	return func(e *Engine) { e.overrides = overrides }
}

// New creates an Engine over the given provider and store.
func New(contracts ContractProvider, store DocumentStore, index IndexService, opts ...Option) *Engine {
	e := &Engine{
		contracts: contracts,
		store:     store,
		index:     index,
		hooks:     NewHookDispatcher(),
		overrides: NewOverrideRegistry(),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Hooks returns the engine's hook dispatcher for registration.
func (e *Engine) Hooks() *HookDispatcher { return e.hooks }

// Overrides returns the engine's override registry for registration.
func (e *Engine) Overrides() *OverrideRegistry { return e.overrides }

// Contracts returns the engine's contract provider.
func (e *Engine) Contracts() ContractProvider { return e.contracts }

// ListQuery is the caller-facing list request, expressed in the external
// filter/sort grammar.
type ListQuery struct {
	Filter   map[string]string // field -> "op:value" or bare value.
	Sort     string            // "field1,-field2".
	Search   string            // Free-text term over searchable fields.
	Page     int               // 1-based; clamped to minimum 1.
	PageSize int               // Clamped to [1, MaxPageSize]; 0 means MaxPageSize.
	Expand   []string          // Relation names; empty means the default set.
	Fields   []string          // Optional explicit output narrowing.
}

// ListResult is a page of projected documents plus paging figures. Total
// counts all post-filter records before paging.
type ListResult struct {
	Items    []resource.Document
	Page     int
	PageSize int
	Total    int
}

// GetOptions controls projection and expansion on Get.
type GetOptions struct {
	Expand []string
	Fields []string
}

// contract loads the contract and checks the operation's enabled flag.
func (e *Engine) contract(ctx context.Context, resourceKey string, op resource.Operation) (*resource.Contract, error) {
	c, err := e.contracts.GetByKey(ctx, resourceKey)
	if err != nil {
		return nil, err
	}
	if !c.Op(op).Enabled {
		return nil, &resource.OperationDisabledError{Resource: c.Key, Op: op}
	}
	return c, nil
}

// newVersion mints an opaque version token.
func newVersion() string {
	return resource.NewGUID()
}
