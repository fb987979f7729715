package resource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RawDefinitionStore supplies raw resource definitions to the Provider.
// Implementations must stamp RawDefinition.UpdatedAt and report the same
// value through GetLastModified, so cache freshness is judged against the
// data, never against wall-clock time.
type RawDefinitionStore interface {
	// GetByKey returns the definition for a resource key.
	// Returns ErrDefinitionNotFound if the key is unknown.
	GetByKey(ctx context.Context, key string) (*RawDefinition, error)

	// GetByRoute returns the definition registered under a route.
	// Returns ErrDefinitionNotFound if the route is unknown.
	GetByRoute(ctx context.Context, route string) (*RawDefinition, error)

	// GetAll returns every stored definition.
	GetAll(ctx context.Context) ([]*RawDefinition, error)

	// GetLastModified returns the definition's last-modified timestamp,
	// or the zero time if the key is unknown.
	GetLastModified(ctx context.Context, key string) (time.Time, error)
}

// cacheEntry pairs a built contract with the definition timestamp it was
// built from.
type cacheEntry struct {
	contract  *Contract
	builtFrom time.Time
}

// Provider resolves contracts by key or route, caching built contracts and
// invalidating them when the underlying definition's timestamp moves.
// Concurrent first access to the same key may rebuild redundantly; the
// builder is pure and cheap, so no rebuild lock is held.
type Provider struct {
	defs   RawDefinitionStore
	logger *zap.Logger
	mu     sync.RWMutex
	cache  map[string]cacheEntry
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(logger *zap.Logger) ProviderOption {
	return func(p *Provider) { p.logger = logger }
}

// NewProvider creates a Provider over the given definition store.
func NewProvider(defs RawDefinitionStore, opts ...ProviderOption) *Provider {
	p := &Provider{
		defs:   defs,
		logger: zap.NewNop(),
		cache:  make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetByKey returns the contract for a resource key, rebuilding it if the
// cached copy is stale. Returns a NotFoundError for unknown keys.
func (p *Provider) GetByKey(ctx context.Context, key string) (*Contract, error) {
	lastMod, err := p.defs.GetLastModified(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("checking definition timestamp: %w", err)
	}

	p.mu.RLock()
	entry, ok := p.cache[key]
	p.mu.RUnlock()
	if ok && !lastMod.After(entry.builtFrom) {
		return entry.contract, nil
	}

	def, err := p.defs.GetByKey(ctx, key)
	if errors.Is(err, ErrDefinitionNotFound) {
		return nil, &NotFoundError{Resource: key}
	}
	if err != nil {
		return nil, fmt.Errorf("loading definition %q: %w", key, err)
	}
	return p.build(ctx, def)
}

// GetByRoute returns the contract registered under a route.
// Returns a NotFoundError for unknown routes.
func (p *Provider) GetByRoute(ctx context.Context, route string) (*Contract, error) {
	def, err := p.defs.GetByRoute(ctx, route)
	if errors.Is(err, ErrDefinitionNotFound) {
		return nil, &NotFoundError{Resource: route}
	}
	if err != nil {
		return nil, fmt.Errorf("loading definition for route %q: %w", route, err)
	}
	return p.GetByKey(ctx, def.Key)
}

// All returns contracts for every stored definition, sorted by key.
func (p *Provider) All(ctx context.Context) ([]*Contract, error) {
	defs, err := p.defs.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading definitions: %w", err)
	}
	contracts := make([]*Contract, 0, len(defs))
	for _, def := range defs {
		c, err := p.GetByKey(ctx, def.Key)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	sort.Slice(contracts, func(i, j int) bool { return contracts[i].Key < contracts[j].Key })
	return contracts, nil
}

// GetLastModified reports the definition timestamp for a key, or the zero
// time if the key is unknown.
func (p *Provider) GetLastModified(ctx context.Context, key string) (time.Time, error) {
	return p.defs.GetLastModified(ctx, key)
}

// build runs the builder, checks relation targets, and caches the result
// under the definition's own timestamp.
func (p *Provider) build(ctx context.Context, def *RawDefinition) (*Contract, error) {
	contract := BuildContract(def)
	if err := p.checkRelations(ctx, def, contract); err != nil {
		return nil, err
	}
	p.warnSearchOnlyFields(contract)

	p.mu.Lock()
	p.cache[def.Key] = cacheEntry{contract: contract, builtFrom: def.UpdatedAt}
	p.mu.Unlock()
	return contract, nil
}

// checkRelations rejects contracts whose relations cross backend kinds.
// Expanding across storage families is not supported.
func (p *Provider) checkRelations(ctx context.Context, def *RawDefinition, contract *Contract) error {
	for _, rel := range contract.Relations {
		target, err := p.defs.GetByKey(ctx, rel.Target)
		if errors.Is(err, ErrDefinitionNotFound) {
			return fmt.Errorf("relation %q of %q: %w",
				rel.APIName, def.Key, &NotFoundError{Resource: rel.Target})
		}
		if err != nil {
			return fmt.Errorf("loading relation target %q: %w", rel.Target, err)
		}
		targetBackend := target.Backend
		if targetBackend == "" {
			targetBackend = BackendDynamic
		}
		if targetBackend != contract.Backend {
			return fmt.Errorf("relation %q of %q: %w", rel.APIName, def.Key, ErrCrossBackendRelation)
		}
	}
	return nil
}

// warnSearchOnlyFields flags fields that declare searchable without
// filterable or sortable on the dynamic backend. Index rows exist only
// for filterable or sortable fields, so search can never match these.
func (p *Provider) warnSearchOnlyFields(c *Contract) {
	if c.Backend != BackendDynamic {
		return
	}
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Searchable && !f.Filterable && !f.Sortable {
			p.logger.Warn("searchable field has no index rows; search cannot match it",
				zap.String("resource", c.Key),
				zap.String("field", f.APIName))
		}
	}
}

// Invalidate drops the cached contract for a key, if any. The next lookup
// rebuilds from the definition store.
func (p *Provider) Invalidate(key string) {
	p.mu.Lock()
	delete(p.cache, key)
	p.mu.Unlock()
}
