package breaker

import "sync"

// Key identifies one breaker in a Registry.
type Key struct {
	Provider string
	Purpose  string
}

// Registry is a keyed store of breakers, injected into the routers so tests
// can swap it for a pre-seeded double.
type Registry struct {
	mu       sync.Mutex
	breakers map[Key]*Breaker
	opts     []Option
}

func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		breakers: make(map[Key]*Breaker),
		opts:     opts,
	}
}

// Get returns the breaker for (provider, purpose), creating it on first use.
func (r *Registry) Get(provider, purpose string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := Key{Provider: provider, Purpose: purpose}
	b, ok := r.breakers[key]
	if !ok {
		b = New(r.opts...)
		r.breakers[key] = b
	}
	return b
}

// Statuses snapshots every known breaker, keyed "provider/purpose".
func (r *Registry) Statuses() map[string]Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Status, len(r.breakers))
	for key, b := range r.breakers {
		out[key.Provider+"/"+key.Purpose] = b.Status()
	}
	return out
}
