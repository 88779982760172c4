// Package provider defines the capability surfaces wallets expose to the host environment,
// one per chain family, and a few implementations of them.
package provider

import (
	"context"
	"encoding/json"

	"github.com/gagliardetto/solana-go"
)

// Provider is an opaque capability reference found in the host environment.
// ID is a stable identity tag: two slots holding the same wallet return the same ID.
type Provider interface {
	ID() string
}

// JSON-RPC methods used on Ethereum providers.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodPersonalSign    = "personal_sign"
)

// Ethereum is the EIP-1193 request surface.
type Ethereum interface {
	Provider
	Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
}

// Flags are the brand markers a Solana provider advertises about itself.
type Flags struct {
	Phantom     bool
	Solflare    bool
	Backpack    bool
	BraveWallet bool
}

// Solana is the connect/sign surface injected by Solana wallets.
type Solana interface {
	Provider
	Connect(ctx context.Context) (solana.PublicKey, error)
	Disconnect(ctx context.Context) error
	SignMessage(ctx context.Context, message []byte) (solana.Signature, error)
	// PublicKey returns the zero key while disconnected.
	PublicKey() solana.PublicKey
	IsConnected() bool
	Flags() Flags
}
