package provider

import (
	"fmt"
	"sync"

	"github.com/lk2023060901/metasearch/internal/search/types"
)

// Constructor builds an engine from its configuration
type Constructor func(*types.EngineConfig) (Engine, error)

// Factory creates engine instances
type Factory struct {
	mu           sync.RWMutex
	constructors map[types.EngineKind]Constructor
}

// NewFactory creates a new engine factory
func NewFactory() *Factory {
	f := &Factory{
		constructors: make(map[types.EngineKind]Constructor),
	}

	// Register built-in engines
	f.Register(types.KindSearXNG, NewSearXNGEngine)
	f.Register(types.KindTavily, NewTavilyEngine)

	return f
}

// Register registers an engine constructor
func (f *Factory) Register(kind types.EngineKind, constructor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[kind] = constructor
}

// Create creates an engine instance from configuration
func (f *Factory) Create(config *types.EngineConfig) (Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config for engine %q: %w", config.Name, err)
	}

	f.mu.RLock()
	constructor, exists := f.constructors[config.Kind]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: kind %s", types.ErrEngineNotFound, config.Kind)
	}

	return constructor(config)
}

// CreateAll creates every configured engine, keyed by engine name
func (f *Factory) CreateAll(configs []types.EngineConfig) (map[string]Engine, error) {
	engines := make(map[string]Engine, len(configs))
	for i := range configs {
		cfg := &configs[i]
		if _, dup := engines[cfg.Name]; dup {
			return nil, fmt.Errorf("duplicate engine name %q", cfg.Name)
		}
		engine, err := f.Create(cfg)
		if err != nil {
			return nil, err
		}
		engines[cfg.Name] = engine
	}
	return engines, nil
}

// Kinds returns all registered engine kinds
func (f *Factory) Kinds() []types.EngineKind {
	f.mu.RLock()
	defer f.mu.RUnlock()

	kinds := make([]types.EngineKind, 0, len(f.constructors))
	for kind := range f.constructors {
		kinds = append(kinds, kind)
	}
	return kinds
}
