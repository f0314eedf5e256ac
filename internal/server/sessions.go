package server

import (
	"sync"

	"github.com/agenthands/ctreview/internal/core"
)

// slot holds the one session a token may have open. Its mutex serialises
// actions so a double-submitted save cannot interleave with itself.
type slot struct {
	mu      sync.Mutex
	session core.Session
}

type registry struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func newRegistry() *registry {
	return &registry{slots: make(map[string]*slot)}
}

func (r *registry) get(token string) (*slot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sl, ok := r.slots[token]
	return sl, ok
}

// put replaces whatever session the token had, so entering a task tears
// down the previous one.
func (r *registry) put(token string, s core.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[token] = &slot{session: s}
}

func (r *registry) drop(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, token)
}
