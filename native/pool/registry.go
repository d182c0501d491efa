package pool

import (
	"errors"
	"sort"
	"sync"

	"prizepool/random"
	"prizepool/yield"
)

var (
	ErrPoolExists   = errors.New("pool: pool id already registered")
	ErrPoolNotFound = errors.New("pool: pool not found")
)

// Registry holds every live pool keyed by its identifier. Pools never share
// state; the registry only provides lookup and enumeration.
type Registry struct {
	mu     sync.RWMutex
	pools  map[uint64]*Engine
	nextID uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[uint64]*Engine), nextID: 1}
}

// Create builds a pool under the next free identifier and registers it.
func (r *Registry) Create(cfg Config, connector yield.Connector, provider random.Provider, owner string) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	engine, err := NewEngine(id, cfg, connector, provider, owner)
	if err != nil {
		return nil, err
	}
	r.pools[id] = engine
	r.nextID++
	return engine, nil
}

// Register adds an already constructed pool, e.g. one restored from storage.
func (r *Registry) Register(engine *Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[engine.ID()]; ok {
		return ErrPoolExists
	}
	r.pools[engine.ID()] = engine
	if engine.ID() >= r.nextID {
		r.nextID = engine.ID() + 1
	}
	return nil
}

// Get returns the pool registered under id.
func (r *Registry) Get(id uint64) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine, ok := r.pools[id]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return engine, nil
}

// IDs lists every registered pool identifier in ascending order.
func (r *Registry) IDs() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint64, 0, len(r.pools))
	for id := range r.pools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len reports the number of registered pools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}
