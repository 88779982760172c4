// Package host assembles the environment wallets are discovered in: the global provider
// slots, the announcement channel and, optionally, the remote announcement bridge.
package host

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"moff.io/walletauth/internal/announce"
	"moff.io/walletauth/internal/config"
	"moff.io/walletauth/internal/discovery"
	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/internal/wallets"
	"moff.io/walletauth/internal/window"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
	"moff.io/walletauth/pkg/seal"
)

type Host struct {
	Slots      window.Static
	Bus        *announce.MemoryBus
	Bridge     *announce.Bridge
	Aggregator *wallets.Aggregator

	closers []func()
}

// Build injects every configured wallet and wires discovery on top of them.
func Build(ctx context.Context, cfg *config.Configuration) (*Host, error) {
	h := &Host{Slots: window.Static{}, Bus: announce.NewMemoryBus()}
	for i, w := range cfg.Wallets {
		p, err := h.newProvider(ctx, &w)
		if err != nil {
			h.Close()
			return nil, errors.Wrapf(err, "wallets[%d]", i)
		}
		if err := h.inject(p, &w); err != nil {
			h.Close()
			return nil, errors.Wrapf(err, "wallets[%d]", i)
		}
		log.Infof("host - injected %v wallet %q", w.Kind, w.Name)
	}

	bus := announce.Bus(h.Bus)
	if cfg.Discovery.BridgeURL != "" {
		var opts []announce.BridgeOption
		if cfg.Discovery.BridgeKey != "" {
			key, err := seal.ParseKey(cfg.Discovery.BridgeKey)
			if err != nil {
				h.Close()
				return nil, errors.Wrap(err, "discovery.bridge_key")
			}
			opts = append(opts, announce.WithKey(key))
		}
		bridge, err := announce.DialBridge(ctx, cfg.Discovery.BridgeURL, opts...)
		if err != nil {
			h.Close()
			return nil, err
		}
		h.Bridge = bridge
		h.closers = append(h.closers, func() { bridge.Close() })
		bus = announce.Multi(h.Bus, bridge)
	}

	h.Aggregator = wallets.New(
		discovery.NewEthereum(bus, h.Slots, discovery.WithGraceWindow(cfg.Discovery.GraceWindow)),
		discovery.NewSolana(h.Slots),
	)
	return h, nil
}

func keyedOptions(w *config.Wallet) []provider.KeyedOption {
	var opts []provider.KeyedOption
	if w.ID != "" {
		opts = append(opts, provider.WithID(w.ID))
	}
	if w.Reject {
		opts = append(opts, provider.WithApprover(provider.RejectAll))
	}
	if len(w.Flags) > 0 {
		opts = append(opts, provider.WithFlags(ParseFlags(w.Flags)))
	}
	return opts
}

func (h *Host) newProvider(ctx context.Context, w *config.Wallet) (provider.Provider, error) {
	switch w.Kind {
	case config.KeyedEthereum:
		chainID := w.ChainID
		if chainID == 0 {
			chainID = 1
		}
		if w.PrivateKey == "" {
			key, err := crypto.GenerateKey()
			if err != nil {
				return nil, errors.Wrap(err, "generate ethereum key")
			}
			return provider.NewKeyedEthereum(key, chainID, keyedOptions(w)...), nil
		}
		return provider.KeyedEthereumFromHex(w.PrivateKey, chainID, keyedOptions(w)...)
	case config.KeyedSolana:
		if w.PrivateKey == "" {
			key, err := solana.NewRandomPrivateKey()
			if err != nil {
				return nil, errors.Wrap(err, "generate solana key")
			}
			return provider.NewKeyedSolana(key, keyedOptions(w)...), nil
		}
		return provider.KeyedSolanaFromBase58(w.PrivateKey, keyedOptions(w)...)
	case config.NodeEthereum:
		node, err := provider.DialNodeEthereum(ctx, w.NodeURL)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, node.Close)
		return node, nil
	}
	return nil, errors.Errorf("unknown wallet kind %q", w.Kind)
}

func (h *Host) inject(p provider.Provider, w *config.Wallet) error {
	if w.Announce {
		eth, ok := p.(provider.Ethereum)
		if !ok {
			return errors.Errorf("%v wallets cannot announce", w.Kind)
		}
		h.Bus.Register(announce.Announcement{
			Info:     announce.Info{UUID: w.UUID, Name: w.Name, Icon: w.Icon, RDNS: w.RDNS},
			Provider: eth,
		})
	}
	for _, name := range w.Slots {
		slot, ok := window.ParseSlot(name)
		if !ok {
			return errors.Errorf("unknown slot %q", name)
		}
		if slot == window.Ethereum {
			if _, ok := p.(provider.Ethereum); !ok {
				return errors.Errorf("%v wallets cannot occupy the %v slot", w.Kind, slot)
			}
		} else if _, ok := p.(provider.Solana); !ok {
			return errors.Errorf("%v wallets cannot occupy the %v slot", w.Kind, slot)
		}
		h.Slots[slot] = p
	}
	return nil
}

// ParseFlags maps brand names to Solana provider flags, unknown names are ignored.
func ParseFlags(names []string) provider.Flags {
	var f provider.Flags
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "phantom":
			f.Phantom = true
		case "solflare":
			f.Solflare = true
		case "backpack":
			f.Backpack = true
		case "brave", "bravewallet":
			f.BraveWallet = true
		}
	}
	return f
}

func (h *Host) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
	h.closers = nil
}
