package submission

import (
	"sync"
	"time"

	"github.com/meinhoongagan/wheel-refurb/intake"
)

// Registry holds the attempts of customers currently filling in the form.
type Registry struct {
	mu        sync.RWMutex
	attempts  map[string]*Attempt
	previewer intake.Previewer
	ttl       time.Duration
	now       func() time.Time
}

func NewRegistry(p intake.Previewer, ttl time.Duration) *Registry {
	return &Registry{
		attempts:  make(map[string]*Attempt),
		previewer: p,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (r *Registry) Create() *Attempt {
	a := NewAttempt(r.previewer)
	r.mu.Lock()
	r.attempts[a.ID] = a
	r.mu.Unlock()
	return a
}

func (r *Registry) Get(id string) (*Attempt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attempts[id]
	return a, ok
}

// Delete discards the attempt and releases its previews.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	a, ok := r.attempts[id]
	delete(r.attempts, id)
	r.mu.Unlock()

	if ok {
		a.Discard()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.attempts)
}

// Reap discards attempts untouched for longer than the TTL. Attempts with a
// submission in flight are kept.
func (r *Registry) Reap() int {
	now := r.now()

	r.mu.Lock()
	var stale []*Attempt
	for id, a := range r.attempts {
		idle, settled := a.idleSince(now)
		if settled && idle > r.ttl {
			stale = append(stale, a)
			delete(r.attempts, id)
		}
	}
	r.mu.Unlock()

	for _, a := range stale {
		a.Discard()
	}
	return len(stale)
}
