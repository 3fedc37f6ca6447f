package notify

import (
	"sort"
	"sync"

	"classroom-quiz-service/internal/domain"
)

// Registry maps a client's logical name to its registration.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]domain.Registration
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]domain.Registration)}
}

// Put creates or replaces a registration. A running countdown survives
// re-registration so its remaining sends follow the new address.
func (r *Registry) Put(reg domain.Registration) domain.Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.clients[reg.Name]; ok {
		reg.Timer = prev.Timer
		reg.QuizStartedAt = prev.QuizStartedAt
	}
	r.clients[reg.Name] = reg
	return reg
}

func (r *Registry) Get(name string) (domain.Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.clients[name]
	return reg, ok
}

// Update applies fn to the named registration under the registry lock.
func (r *Registry) Update(name string, fn func(*domain.Registration)) (domain.Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.clients[name]
	if !ok {
		return domain.Registration{}, false
	}
	fn(&reg)
	r.clients[name] = reg
	return reg, true
}

// Remove drops a registration, but only if it still points at addr, so a
// failed send to an old address never evicts a fresh re-registration.
func (r *Registry) Remove(name, addr string) (domain.Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.clients[name]
	if !ok || reg.Address() != addr {
		return domain.Registration{}, false
	}
	delete(r.clients, name)
	return reg, true
}

// Snapshot returns every registration ordered by name.
func (r *Registry) Snapshot() []domain.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Registration, 0, len(r.clients))
	for _, reg := range r.clients {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
