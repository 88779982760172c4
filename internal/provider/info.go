package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"moff.io/walletauth/pkg/errors"
)

// RequestAccounts asks the wallet for account access, prompting the user if needed.
func RequestAccounts(ctx context.Context, p Ethereum) ([]string, error) {
	return accounts(ctx, p, MethodRequestAccounts)
}

// Accounts returns the already authorized accounts without prompting.
func Accounts(ctx context.Context, p Ethereum) ([]string, error) {
	return accounts(ctx, p, MethodAccounts)
}

func accounts(ctx context.Context, p Ethereum, method string) ([]string, error) {
	raw, err := p.Request(ctx, method)
	if err != nil {
		return nil, err
	}
	result := gjson.ParseBytes(raw)
	if !result.IsArray() {
		if result.Type == gjson.Null || len(raw) == 0 {
			return nil, nil
		}
		return nil, errors.Errorf("%s returned %s", method, string(raw))
	}
	var out []string
	for _, v := range result.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// ChainID returns the hex chain id the wallet is connected to.
func ChainID(ctx context.Context, p Ethereum) (string, error) {
	raw, err := p.Request(ctx, MethodChainID)
	if err != nil {
		return "", errors.Errorf("Failed to get chain ID: %s", MessageOf(err))
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", errors.Wrap(err, "decode chain id")
	}
	return strings.ToLower(id), nil
}

// EthereumInfo describes a connected Ethereum wallet.
type EthereumInfo struct {
	Address     string `json:"address"`
	ChainID     string `json:"chain_id"`
	IsConnected bool   `json:"is_connected"`
}

// EthereumWalletInfo returns nil when the wallet is not connected or cannot be queried.
func EthereumWalletInfo(ctx context.Context, p Ethereum) *EthereumInfo {
	accounts, err := Accounts(ctx, p)
	if err != nil || len(accounts) == 0 {
		return nil
	}
	chainID, err := ChainID(ctx, p)
	if err != nil {
		return nil
	}
	return &EthereumInfo{Address: accounts[0], ChainID: chainID, IsConnected: true}
}

// SolanaInfo describes a connected Solana wallet.
type SolanaInfo struct {
	Address     string `json:"address"`
	IsConnected bool   `json:"is_connected"`
}

// SolanaWalletInfo returns nil when the wallet is not connected.
func SolanaWalletInfo(p Solana) *SolanaInfo {
	if !p.IsConnected() || p.PublicKey().IsZero() {
		return nil
	}
	return &SolanaInfo{Address: p.PublicKey().String(), IsConnected: true}
}
