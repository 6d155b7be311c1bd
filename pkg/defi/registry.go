package defi

import (
	"fmt"
	"sync"
)

type Named interface {
	Name() string
}

// Registry maps provider names to providers. The first registered provider
// is the default.
type Registry[P Named] struct {
	mu     sync.RWMutex
	byName map[string]P
	order  []string
}

func NewRegistry[P Named]() *Registry[P] {
	return &Registry[P]{byName: make(map[string]P)}
}

func (r *Registry[P]) Register(p P) error {
	name := p.Name()
	if name == "" {
		return fmt.Errorf("provider name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.byName[name] = p
	r.order = append(r.order, name)
	return nil
}

func (r *Registry[P]) Get(name string) (P, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	if !ok {
		return p, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

func (r *Registry[P]) Default() (P, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero P
	if len(r.order) == 0 {
		return zero, fmt.Errorf("no providers registered")
	}
	return r.byName[r.order[0]], nil
}

// Names returns provider names in registration order.
func (r *Registry[P]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
