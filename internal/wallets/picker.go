package wallets

import (
	"fmt"

	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/pkg/errors"
)

var (
	ErrNoWalletSelected    = errors.New("no wallet selected")
	ErrChainChoiceRequired = errors.New("choose a network to continue")
	ErrUnknownWallet       = errors.New("wallet not found")
)

// InstallLink points users without any wallet at an installer.
type InstallLink struct {
	Wallet string `json:"wallet"`
	URL    string `json:"url"`
}

// InstallLinks are offered when discovery finds nothing.
var InstallLinks = []InstallLink{
	{Wallet: "MetaMask", URL: "https://metamask.io/"},
	{Wallet: "Phantom", URL: "https://phantom.app/"},
}

// InstallLinkFor looks an install link up by case-insensitive wallet name or group id.
func InstallLinkFor(name string) (InstallLink, bool) {
	for _, l := range InstallLinks {
		if GroupID(l.Wallet) == GroupID(name) {
			return l, true
		}
	}
	return InstallLink{}, false
}

// Action describes the connect button for the selected wallet.
type Action struct {
	Label  string       `json:"label"`
	Direct bool         `json:"direct"`
	Chains []chain.Kind `json:"chains"`
}

// Picker is the wallet selection state of a login attempt.
type Picker struct {
	wallets  []GroupedWallet
	selected *GroupedWallet
}

// NewPicker selects the wallet right away when it is the only one.
func NewPicker(wallets []GroupedWallet) *Picker {
	p := &Picker{wallets: wallets}
	if len(wallets) == 1 {
		p.selected = &p.wallets[0]
	}
	return p
}

func (p *Picker) Wallets() []GroupedWallet {
	return p.wallets
}

// Empty reports the no-wallet state.
func (p *Picker) Empty() bool {
	return len(p.wallets) == 0
}

// Select picks a wallet by group uuid.
func (p *Picker) Select(uuid string) error {
	for i := range p.wallets {
		if p.wallets[i].UUID == uuid {
			p.selected = &p.wallets[i]
			return nil
		}
	}
	return errors.Wrap(ErrUnknownWallet, uuid)
}

func (p *Picker) Selected() *GroupedWallet {
	return p.selected
}

// Action returns the connect action of the selected wallet. A wallet on one chain connects
// directly, a multi-chain wallet needs a network choice first.
func (p *Picker) Action() (*Action, error) {
	if p.selected == nil {
		return nil, ErrNoWalletSelected
	}
	kinds := p.selected.SupportedChains()
	return &Action{
		Label:  fmt.Sprintf("Connect %s", p.selected.Name),
		Direct: len(kinds) == 1,
		Chains: kinds,
	}, nil
}

// Choose resolves the selection to dispatch. kind may be empty only for single-chain wallets.
func (p *Picker) Choose(kind chain.Kind) (*Selection, error) {
	if p.selected == nil {
		return nil, ErrNoWalletSelected
	}
	if kind == "" {
		if p.selected.MultiChain() || len(p.selected.Chains) == 0 {
			return nil, ErrChainChoiceRequired
		}
		kind = p.selected.Chains[0].Chain
	}
	return p.selected.Select(kind)
}
