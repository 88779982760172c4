package host

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/config"
	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/internal/window"
)

func ethereumKey(t *testing.T) string {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return hex.EncodeToString(crypto.FromECDSA(key))
}

func solanaKey(t *testing.T) string {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.String()
}

func TestBuildGroupsPhantomAcrossChains(t *testing.T) {
	cfg := &config.Configuration{
		Discovery: config.Discovery{GraceWindow: 10 * time.Millisecond},
		Wallets: []config.Wallet{
			{Kind: config.KeyedEthereum, Name: "Phantom", UUID: "phantom-eth", Announce: true, PrivateKey: ethereumKey(t), ChainID: 137},
			{Kind: config.KeyedSolana, ID: "phantom", Slots: []string{"phantom.solana", "solana"}, Flags: []string{"Phantom"}, PrivateKey: solanaKey(t)},
			{Kind: config.KeyedEthereum, Name: "MetaMask", UUID: "metamask", Announce: true, PrivateKey: ethereumKey(t), Reject: true},
		},
	}
	h, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer h.Close()

	grouped := h.Aggregator.Grouped(context.Background())
	require.Len(t, grouped, 2)
	assert.Equal(t, "Phantom", grouped[0].Name)
	assert.Equal(t, []chain.Kind{chain.Ethereum, chain.Solana}, grouped[0].SupportedChains())
	assert.Equal(t, "metamask", grouped[1].UUID)

	_, err = provider.RequestAccounts(context.Background(), grouped[1].Chains[0].Provider.(provider.Ethereum))
	assert.True(t, provider.IsUserRejected(err))
}

func TestBuildLegacySlot(t *testing.T) {
	cfg := &config.Configuration{
		Wallets: []config.Wallet{
			{Kind: config.KeyedEthereum, Slots: []string{"ethereum"}, PrivateKey: ethereumKey(t)},
		},
	}
	h, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	_, ok := h.Slots.Lookup(window.Ethereum)
	assert.True(t, ok)

	flat := h.Aggregator.Flat(context.Background())
	require.Len(t, flat, 1)
	assert.Equal(t, "Ethereum Wallet", flat[0].Name)
}

func TestBuildRejectsMisplacedWallets(t *testing.T) {
	for name, w := range map[string]config.Wallet{
		"solana in ethereum slot": {Kind: config.KeyedSolana, Slots: []string{"ethereum"}, PrivateKey: solanaKey(t)},
		"ethereum in solana slot": {Kind: config.KeyedEthereum, Slots: []string{"solflare"}, PrivateKey: ethereumKey(t)},
		"solana announcing":       {Kind: config.KeyedSolana, Announce: true, Name: "x", UUID: "x", PrivateKey: solanaKey(t)},
		"unknown slot":            {Kind: config.KeyedEthereum, Slots: []string{"tronWeb"}, PrivateKey: ethereumKey(t)},
		"bad key":                 {Kind: config.KeyedEthereum, PrivateKey: "zz"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Build(context.Background(), &config.Configuration{Wallets: []config.Wallet{w}})
			assert.Error(t, err)
		})
	}
}

func TestParseFlags(t *testing.T) {
	assert.Equal(t, provider.Flags{Phantom: true, BraveWallet: true}, ParseFlags([]string{" phantom", "Brave", "other"}))
}

func TestBuildGeneratesMissingKeys(t *testing.T) {
	cfg := &config.Configuration{
		Wallets: []config.Wallet{
			{Kind: config.KeyedSolana, Slots: []string{"solflare"}},
			{Kind: config.KeyedEthereum, Slots: []string{"ethereum"}},
		},
	}
	h, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	p, ok := h.Slots.Lookup(window.Solflare)
	require.True(t, ok)
	assert.NotEmpty(t, p.ID())
}

func TestBuildRejectsBadBridgeKey(t *testing.T) {
	_, err := Build(context.Background(), &config.Configuration{
		Discovery: config.Discovery{BridgeURL: "http://127.0.0.1:1", BridgeKey: "abcd"},
	})
	assert.ErrorContains(t, err, "bridge_key")
}
