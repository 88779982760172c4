// Package wallets merges the per-chain discovery results into the views offered to users.
package wallets

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/discovery"
	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/pkg/errors"
)

// Wallet is a flat view entry, one per discovered handle.
type Wallet struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Icon        string            `json:"icon"`
	UUID        string            `json:"uuid"`
	Chain       chain.Kind        `json:"chain"`
	Provider    provider.Provider `json:"-"`
}

// ChainEntry is one chain a grouped wallet can sign in on.
type ChainEntry struct {
	Chain        chain.Kind        `json:"chain"`
	Provider     provider.Provider `json:"-"`
	OriginalUUID string            `json:"original_uuid"`
}

// GroupedWallet is one wallet name with every chain it was discovered on.
type GroupedWallet struct {
	Name   string       `json:"name"`
	Icon   string       `json:"icon"`
	UUID   string       `json:"uuid"`
	Chains []ChainEntry `json:"chains"`
}

// SupportedChains returns the chains in discovery order.
func (g *GroupedWallet) SupportedChains() []chain.Kind {
	kinds := make([]chain.Kind, 0, len(g.Chains))
	for _, c := range g.Chains {
		kinds = append(kinds, c.Chain)
	}
	return kinds
}

func (g *GroupedWallet) MultiChain() bool {
	return len(g.Chains) > 1
}

// Entry returns the chain entry for kind.
func (g *GroupedWallet) Entry(kind chain.Kind) (ChainEntry, bool) {
	for _, c := range g.Chains {
		if c.Chain == kind {
			return c, true
		}
	}
	return ChainEntry{}, false
}

// Selection is a wallet and chain ready for dispatch.
type Selection struct {
	WalletName string
	Chain      chain.Kind
	Provider   provider.Provider
}

// Select picks the capability serving kind.
func (g *GroupedWallet) Select(kind chain.Kind) (*Selection, error) {
	entry, ok := g.Entry(kind)
	if !ok {
		return nil, errors.Errorf("%s does not support %s", g.Name, kind)
	}
	return &Selection{WalletName: g.Name, Chain: kind, Provider: entry.Provider}, nil
}

// Flatten concatenates Ethereum then Solana handles, suffixing display names with the chain.
func Flatten(eth, sol []discovery.Handle) []Wallet {
	out := make([]Wallet, 0, len(eth)+len(sol))
	for _, h := range eth {
		out = append(out, newWallet(h, chain.Ethereum))
	}
	for _, h := range sol {
		out = append(out, newWallet(h, chain.Solana))
	}
	return out
}

func newWallet(h discovery.Handle, kind chain.Kind) Wallet {
	return Wallet{
		Name:        h.Name,
		DisplayName: fmt.Sprintf("%s (%s)", h.Name, kind.DisplayName()),
		Icon:        h.Icon,
		UUID:        h.UUID,
		Chain:       kind,
		Provider:    h.Provider,
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// GroupID derives the group uuid from a wallet name.
func GroupID(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(name), "-")
}

// Group merges flat entries sharing a byte-identical name. Groups keep first-seen order and
// the icon of the entry that introduced the name. Unrelated wallets sharing a name are merged too.
func Group(flat []Wallet) []GroupedWallet {
	groups := make([]GroupedWallet, 0, len(flat))
	index := make(map[string]int)
	for _, w := range flat {
		i, ok := index[w.Name]
		if !ok {
			i = len(groups)
			index[w.Name] = i
			groups = append(groups, GroupedWallet{
				Name: w.Name,
				Icon: w.Icon,
				UUID: GroupID(w.Name),
			})
		}
		g := &groups[i]
		if _, dup := g.Entry(w.Chain); dup {
			continue
		}
		g.Chains = append(g.Chains, ChainEntry{
			Chain:        w.Chain,
			Provider:     w.Provider,
			OriginalUUID: w.UUID,
		})
	}
	return groups
}

// Aggregator runs both discoveries and derives the flat and grouped views. Nothing is cached,
// every call is a fresh discovery pass.
type Aggregator struct {
	ethereum discovery.Discoverer
	solana   discovery.Discoverer
}

func New(eth, sol discovery.Discoverer) *Aggregator {
	return &Aggregator{ethereum: eth, solana: sol}
}

// Discover runs the Ethereum and Solana passes in parallel.
func (a *Aggregator) Discover(ctx context.Context) (eth, sol []discovery.Handle) {
	var wg sync.WaitGroup
	run := func(d discovery.Discoverer, out *[]discovery.Handle) {
		defer wg.Done()
		if d == nil {
			return
		}
		*out = d.Discover(ctx)
	}
	wg.Add(2)
	go run(a.ethereum, &eth)
	go run(a.solana, &sol)
	wg.Wait()
	return eth, sol
}

func (a *Aggregator) Flat(ctx context.Context) []Wallet {
	return Flatten(a.Discover(ctx))
}

func (a *Aggregator) Grouped(ctx context.Context) []GroupedWallet {
	return Group(a.Flat(ctx))
}
