package discovery

import (
	"context"
	"strings"

	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/internal/window"
	"moff.io/walletauth/pkg/log"
)

// Brand icons.
const (
	PhantomIcon  = "https://phantom.app/img/phantom-icon-purple.png"
	SolflareIcon = "https://www.solflare.com/wp-content/uploads/2024/11/App-Icon.svg"
	BackpackIcon = "https://backpack.app/icon.png"
)

// Solana discovers wallets by probing the well-known Solana slots. It never waits.
type Solana struct {
	probe window.Probe
}

func NewSolana(probe window.Probe) *Solana {
	return &Solana{probe: probe}
}

func (s *Solana) Discover(ctx context.Context) []Handle {
	handles := []Handle{}
	if s.probe == nil {
		return handles
	}
	seen := make(map[string]bool)
	for _, slot := range window.SolanaSlots {
		p, ok := s.lookup(slot)
		if !ok {
			continue
		}
		var (
			id string
			h  Handle
		)
		if !guard("slot "+string(slot)+" provider", func() { id = p.ID(); h = describe(slot, p) }) {
			continue
		}
		if seen[id] {
			log.Debugf("discovery - %v already seen as %v", slot, id)
			continue
		}
		seen[id] = true
		h.Provider = p
		handles = append(handles, h)
	}
	return handles
}

func (s *Solana) lookup(slot window.Slot) (provider.Solana, bool) {
	var p provider.Provider
	var found bool
	if !guard("slot "+string(slot), func() { p, found = s.probe.Lookup(slot) }) || !found {
		return nil, false
	}
	sol, ok := p.(provider.Solana)
	if !ok {
		log.Debugf("discovery - slot %v holds no solana provider", slot)
	}
	return sol, ok
}

func describe(slot window.Slot, p provider.Solana) Handle {
	switch slot {
	case window.PhantomSolana:
		return Handle{Name: "Phantom", Icon: PhantomIcon, UUID: "phantom-solana"}
	case window.Solflare:
		return Handle{Name: "Solflare", Icon: SolflareIcon, UUID: "solflare-solana"}
	case window.Backpack:
		return Handle{Name: "Backpack", Icon: BackpackIcon, UUID: "backpack-solana"}
	case window.BraveSolana:
		return Handle{Name: "Brave Wallet", UUID: "brave-solana"}
	}
	// the generic slot is named after the brand flags the provider advertises
	var name, icon string
	flags := p.Flags()
	switch {
	case flags.Phantom:
		name, icon = "Phantom", PhantomIcon
	case flags.Solflare:
		name, icon = "Solflare", SolflareIcon
	case flags.Backpack:
		name, icon = "Backpack", BackpackIcon
	default:
		name = "Solana Wallet"
	}
	return Handle{Name: name, Icon: icon, UUID: "solana-" + strings.ToLower(name)}
}
