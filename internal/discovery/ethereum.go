package discovery

import (
	"context"
	"sync"
	"time"

	"moff.io/walletauth/internal/announce"
	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/internal/window"
	"moff.io/walletauth/pkg/log"
)

// GraceWindow is how long announcements are collected after the request signal.
const GraceWindow = 100 * time.Millisecond

// Legacy single-slot fallback.
const (
	LegacyName = "Ethereum Wallet"
	LegacyUUID = "legacy-ethereum"
)

type EthereumOption func(*Ethereum)

// WithClock replaces the wall clock used for the grace window.
func WithClock(clock announce.Clock) EthereumOption {
	return func(e *Ethereum) {
		e.clock = clock
	}
}

func WithGraceWindow(d time.Duration) EthereumOption {
	return func(e *Ethereum) {
		if d > 0 {
			e.grace = d
		}
	}
}

// Ethereum discovers wallets announcing themselves on the bus, falling back to the legacy
// global slot when nobody answers.
type Ethereum struct {
	bus   announce.Bus
	probe window.Probe
	clock announce.Clock
	grace time.Duration
}

// NewEthereum bus and probe may be nil, a missing source contributes nothing.
func NewEthereum(bus announce.Bus, probe window.Probe, opts ...EthereumOption) *Ethereum {
	e := &Ethereum{
		bus:   bus,
		probe: probe,
		clock: announce.SystemClock{},
		grace: GraceWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type collector struct {
	mu      sync.Mutex
	closed  bool
	handles []Handle
}

func (c *collector) add(a announce.Announcement) {
	if a.Info.Name == "" || a.Info.UUID == "" || a.Provider == nil {
		log.Debugf("discovery - dropping incomplete announcement %+v", a.Info)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// listeners on a relay may fire after the window closed
	if c.closed {
		return
	}
	c.handles = append(c.handles, Handle{
		Name:     a.Info.Name,
		Icon:     a.Info.Icon,
		UUID:     a.Info.UUID,
		Provider: a.Provider,
	})
}

func (c *collector) close() []Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	out := make([]Handle, len(c.handles))
	copy(out, c.handles)
	return out
}

func (e *Ethereum) Discover(ctx context.Context) []Handle {
	c := &collector{}
	if e.bus != nil {
		var unsubscribe func()
		guard("announcement subscribe", func() {
			unsubscribe = e.bus.Subscribe(c.add)
		})
		guard("announcement request", func() {
			if err := e.bus.Request(); err != nil {
				log.Warnf("discovery - request announcements:%v", err)
			}
		})
		select {
		case <-e.clock.After(e.grace):
		case <-ctx.Done():
			log.Debugf("discovery - grace window cut short:%v", ctx.Err())
		}
		if unsubscribe != nil {
			guard("announcement unsubscribe", unsubscribe)
		}
	}
	handles := c.close()
	if len(handles) > 0 {
		return handles
	}
	if legacy, ok := e.legacy(); ok {
		return []Handle{{Name: LegacyName, UUID: LegacyUUID, Provider: legacy}}
	}
	return []Handle{}
}

func (e *Ethereum) legacy() (provider.Ethereum, bool) {
	if e.probe == nil {
		return nil, false
	}
	var p provider.Provider
	var found bool
	if !guard("legacy slot", func() { p, found = e.probe.Lookup(window.Ethereum) }) || !found {
		return nil, false
	}
	eth, ok := p.(provider.Ethereum)
	return eth, ok
}
