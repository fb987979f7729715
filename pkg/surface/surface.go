// Package surface provides the public entry point for an embedded
// datasurface instance: one call opens the store, wires the contract
// provider and returns a ready engine.
//
// Example:
//
//	s, err := surface.Open(".datasurface-db", surface.Options{})
//	if err != nil { ... }
//	defer s.Close()
//	doc, err := s.Engine().Create(ctx, "tasks", payload)
package surface

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MoslemBenDhaou/datasurface/internal/sqlite"
	"github.com/MoslemBenDhaou/datasurface/pkg/engine"
	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// Options configures an embedded instance. The zero value is usable.
type Options struct {
	Logger    *zap.Logger       // Defaults to a no-op logger.
	Hooks     *engine.HookDispatcher
	Overrides *engine.OverrideRegistry
	Seed      bool // Install the built-in example definitions on open.
}

// Surface bundles the store, the contract provider and the engine.
type Surface struct {
	store    *sqlite.Store
	provider *resource.Provider
	engine   *engine.Engine
}

// Open creates or opens the store under dataDir and wires an engine over it.
func Open(dataDir string, opts Options) (*Surface, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := sqlite.Open(dataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if opts.Seed {
		if err := store.Seed(context.Background()); err != nil {
			store.Close()
			return nil, fmt.Errorf("seed definitions: %w", err)
		}
	}

	provider := resource.NewProvider(store.Definitions(), resource.WithLogger(logger))

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.Hooks != nil {
		engineOpts = append(engineOpts, engine.WithHooks(opts.Hooks))
	}
	if opts.Overrides != nil {
		engineOpts = append(engineOpts, engine.WithOverrides(opts.Overrides))
	}

	return &Surface{
		store:    store,
		provider: provider,
		engine:   engine.New(provider, store, store, engineOpts...),
	}, nil
}

// Engine returns the CRUD engine.
func (s *Surface) Engine() *engine.Engine { return s.engine }

// Contracts returns the contract provider.
func (s *Surface) Contracts() *resource.Provider { return s.provider }

// Definitions returns the raw definition store for administration.
func (s *Surface) Definitions() *sqlite.Definitions { return s.store.Definitions() }

// Store returns the underlying document store.
func (s *Surface) Store() *sqlite.Store { return s.store }

// Close releases the store.
func (s *Surface) Close() error { return s.store.Close() }
