package store

import (
	"context"
	"sort"
	"sync"

	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/repository"
)

// Registry hands out one Store per store name. Build it once and pass it
// to whoever needs a store.
type Registry struct {
	repo repository.LocalStateRepo
	opts Options

	mu     sync.Mutex
	stores map[string]*Store
}

func NewRegistry(repo repository.LocalStateRepo, opts Options) *Registry {
	return &Registry{repo: repo, opts: opts, stores: make(map[string]*Store)}
}

// Open returns the store rooted at kind, loading it on first use.
func (r *Registry) Open(ctx context.Context, kind domain.Kind) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[Name(kind)]; ok {
		return s, nil
	}
	s, err := Open(ctx, r.repo, kind, r.opts)
	if err != nil {
		return nil, err
	}
	r.stores[s.Name()] = s
	return s, nil
}

// Get returns an already opened store.
func (r *Registry) Get(kind domain.Kind) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[Name(kind)]
	return s, ok
}

// Names lists the opened stores.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
