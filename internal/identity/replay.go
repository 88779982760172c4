package identity

import (
	"context"
	"sync"
	"time"
)

// ReplayGuard remembers sign-in nonces so a signed message can only be exchanged once.
type ReplayGuard interface {
	// Claim records nonce for ttl, false means it was already used.
	Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}

// MemoryReplayGuard is a process local ReplayGuard.
type MemoryReplayGuard struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	now    func() time.Time
	sweeps int
}

func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{seen: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryReplayGuard) Claim(_ context.Context, nonce string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if g.sweeps++; g.sweeps%128 == 0 {
		for k, exp := range g.seen {
			if now.After(exp) {
				delete(g.seen, k)
			}
		}
	}
	if exp, ok := g.seen[nonce]; ok && !now.After(exp) {
		return false, nil
	}
	g.seen[nonce] = now.Add(ttl)
	return true, nil
}
