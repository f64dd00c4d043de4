package detection

import (
	"sync"
	"time"
)

// Gate is the shared cooldown gate. One instance is shared by every
// sampler so a burst of audio and motion events inside the same cooldown
// window collapses to a single accepted detection.
type Gate struct {
	mu             sync.Mutex
	lastAcceptedAt time.Time // zero value means no detection accepted yet
	config         *Config
	now            func() time.Time
}

// NewGate returns a gate that reads its cooldown period from config.
// The first event always passes.
func NewGate(config *Config) *Gate {
	return &Gate{
		config: config,
		now:    time.Now,
	}
}

// TryAccept accepts the event if the cooldown window since the last
// accepted detection has elapsed. The caller must dispatch the event when
// true is returned; on false the event is dropped. The lock is held only
// for the compare-and-set so the gate never delays a sampler.
func (g *Gate) TryAccept(event *Event) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.lastAcceptedAt.IsZero() && now.Sub(g.lastAcceptedAt) < g.config.CooldownPeriod() {
		return false
	}
	g.lastAcceptedAt = now
	return true
}

// LastAcceptedAt returns when the gate last accepted a detection, or the
// zero time if it never has. Used by the status surface.
func (g *Gate) LastAcceptedAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastAcceptedAt
}

// Reset clears the gate so the next event passes regardless of cooldown.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastAcceptedAt = time.Time{}
}
