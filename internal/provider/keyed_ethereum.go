package provider

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"strings"
	"sync"

	gethaccounts "github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
)

// KeyedEthereum is a headless EIP-1193 wallet holding one secp256k1 key.
type KeyedEthereum struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID uint64
	opts    keyedOptions

	mu        sync.Mutex
	connected bool
}

// NewKeyedEthereum returns a wallet for key on chainID, disconnected until eth_requestAccounts is approved.
func NewKeyedEthereum(key *ecdsa.PrivateKey, chainID uint64, opts ...KeyedOption) *KeyedEthereum {
	w := &KeyedEthereum{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		opts:    applyKeyedOptions(opts),
	}
	if w.opts.id == "" {
		w.opts.id = strings.ToLower(w.address.Hex())
	}
	return w
}

// KeyedEthereumFromHex parses a hex private key, with or without 0x prefix.
func KeyedEthereumFromHex(hexKey string, chainID uint64, opts ...KeyedOption) (*KeyedEthereum, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse ethereum private key")
	}
	return NewKeyedEthereum(key, chainID, opts...), nil
}

func (w *KeyedEthereum) ID() string {
	return w.opts.id
}

// Address returns the checksummed account address.
func (w *KeyedEthereum) Address() common.Address {
	return w.address
}

func (w *KeyedEthereum) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	log.Debugf("keyed ethereum wallet %v - request:%v", w.opts.id, method)
	switch method {
	case MethodRequestAccounts:
		if err := w.opts.approve(ctx, method); err != nil {
			return nil, err
		}
		w.setConnected(true)
		return json.Marshal([]string{w.address.Hex()})
	case MethodAccounts:
		if !w.isConnected() {
			return json.Marshal([]string{})
		}
		return json.Marshal([]string{w.address.Hex()})
	case MethodChainID:
		return json.Marshal(hexutil.EncodeUint64(w.chainID))
	case MethodPersonalSign:
		return w.personalSign(ctx, params)
	}
	return nil, NewError(CodeUnsupportedMethod, "The requested method is not supported by this wallet: "+method)
}

func (w *KeyedEthereum) personalSign(ctx context.Context, params []interface{}) (json.RawMessage, error) {
	if len(params) < 2 {
		return nil, NewError(-32602, "personal_sign expects [message, address]")
	}
	msgParam, _ := params[0].(string)
	addrParam, _ := params[1].(string)
	if !w.isConnected() || !strings.EqualFold(addrParam, w.address.Hex()) {
		return nil, NewError(CodeUnauthorized, "The requested account has not been authorized by the user.")
	}
	if err := w.opts.approve(ctx, MethodPersonalSign); err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(gethaccounts.TextHash(decodeSignPayload(msgParam)), w.key)
	if err != nil {
		return nil, errors.Wrap(err, "sign personal message")
	}
	sig[crypto.RecoveryIDOffset] += 27 // Transform V from 0/1 to yellow paper 27/28
	return json.Marshal(hexutil.Encode(sig))
}

func (w *KeyedEthereum) setConnected(connected bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = connected
}

func (w *KeyedEthereum) isConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// decodeSignPayload follows wallet convention: 0x-prefixed params are hex encoded bytes, anything else is text.
func decodeSignPayload(param string) []byte {
	if strings.HasPrefix(param, "0x") {
		if b, err := hexutil.Decode(param); err == nil {
			return b
		}
	}
	return []byte(param)
}
