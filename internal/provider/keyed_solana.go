package provider

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
)

// KeyedSolana is a headless Solana wallet holding one ed25519 key.
type KeyedSolana struct {
	key  solana.PrivateKey
	opts keyedOptions

	mu        sync.Mutex
	connected bool
}

// NewKeyedSolana returns a disconnected wallet for key.
func NewKeyedSolana(key solana.PrivateKey, opts ...KeyedOption) *KeyedSolana {
	w := &KeyedSolana{key: key, opts: applyKeyedOptions(opts)}
	if w.opts.id == "" {
		w.opts.id = key.PublicKey().String()
	}
	return w
}

// KeyedSolanaFromBase58 parses a base58 encoded 64 byte keypair.
func KeyedSolanaFromBase58(secret string, opts ...KeyedOption) (*KeyedSolana, error) {
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, errors.Wrap(err, "parse solana private key")
	}
	return NewKeyedSolana(key, opts...), nil
}

func (w *KeyedSolana) ID() string {
	return w.opts.id
}

func (w *KeyedSolana) Flags() Flags {
	return w.opts.flags
}

func (w *KeyedSolana) Connect(ctx context.Context) (solana.PublicKey, error) {
	log.Debugf("keyed solana wallet %v - connect", w.opts.id)
	if err := w.opts.approve(ctx, "connect"); err != nil {
		return solana.PublicKey{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = true
	return w.key.PublicKey(), nil
}

func (w *KeyedSolana) Disconnect(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = false
	return nil
}

func (w *KeyedSolana) SignMessage(ctx context.Context, message []byte) (solana.Signature, error) {
	if !w.IsConnected() {
		return solana.Signature{}, NewError(CodeUnauthorized, "The requested account has not been authorized by the user.")
	}
	if err := w.opts.approve(ctx, "signMessage"); err != nil {
		return solana.Signature{}, err
	}
	sig, err := w.key.Sign(message)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "sign solana message")
	}
	return sig, nil
}

func (w *KeyedSolana) PublicKey() solana.PublicKey {
	if !w.IsConnected() {
		return solana.PublicKey{}
	}
	return w.key.PublicKey()
}

func (w *KeyedSolana) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}
