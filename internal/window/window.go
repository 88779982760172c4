// Package window models the well-known global slots wallets inject their providers into.
package window

import "moff.io/walletauth/internal/provider"

// Slot is the property path of a global provider slot.
type Slot string

const (
	Ethereum      Slot = "ethereum"
	PhantomSolana Slot = "phantom.solana"
	Solana        Slot = "solana"
	Solflare      Slot = "solflare"
	Backpack      Slot = "backpack"
	BraveSolana   Slot = "braveSolana"
)

// SolanaSlots lists the Solana slots in probe order, brand-specific first.
var SolanaSlots = []Slot{PhantomSolana, Solana, Solflare, Backpack, BraveSolana}

// Probe reads global slots. Implementations must not mutate the environment.
type Probe interface {
	Lookup(slot Slot) (provider.Provider, bool)
}

// Static is a fixed slot table.
type Static map[Slot]provider.Provider

func (s Static) Lookup(slot Slot) (provider.Provider, bool) {
	p, ok := s[slot]
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

// ParseSlot validates a slot name from configuration.
func ParseSlot(name string) (Slot, bool) {
	slot := Slot(name)
	if slot == Ethereum {
		return slot, true
	}
	for _, s := range SolanaSlots {
		if s == slot {
			return slot, true
		}
	}
	return "", false
}
