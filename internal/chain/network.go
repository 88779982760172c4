package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UnknownNetwork is rendered when a session carries no usable network.
const UnknownNetwork = "Unknown Network"

type Blockchain struct {
	ID    uint64
	IDHex string
	Name  string
}

var (
	// EVM lists the named Ethereum-compatible networks.
	EVM = []*Blockchain{
		{ID: 1, IDHex: "0x1", Name: "Ethereum Mainnet"},
		{ID: 137, IDHex: "0x89", Name: "Polygon"},
		{ID: 10, IDHex: "0xa", Name: "Optimism"},
		{ID: 42161, IDHex: "0xa4b1", Name: "Arbitrum One"},
		{ID: 8453, IDHex: "0x2105", Name: "Base"},
		{ID: 11155111, IDHex: "0xaa36a7", Name: "Sepolia Testnet"},
		{ID: 5, IDHex: "0x5", Name: "Goerli Testnet"},
	}

	evmMapping = func() map[string]*Blockchain {
		m := make(map[string]*Blockchain, len(EVM))
		for _, b := range EVM {
			m[b.IDHex] = b
		}
		return m
	}()

	solanaClusters = map[string]string{
		"mainnet-beta": "Solana Mainnet",
		"101":          "Solana Mainnet",
		"devnet":       "Solana Devnet",
		"testnet":      "Solana Testnet",
	}
)

// DecimalToHex converts a decimal chain id such as "137" to "0x89".
// Values already carrying a 0x prefix are lowercased and returned.
func DecimalToHex(decimal string) (string, bool) {
	decimal = strings.TrimSpace(decimal)
	if has0xPrefix(decimal) {
		if _, ok := parseHex(decimal); !ok {
			return "", false
		}
		return strings.ToLower(decimal), true
	}
	n, ok := new(big.Int).SetString(decimal, 10)
	if !ok || n.Sign() < 0 {
		return "", false
	}
	return hexutil.EncodeBig(n), true
}

// EthereumNetworkName resolves a hex chain id, unknown ids render as "Chain {decimal}".
func EthereumNetworkName(chainIDHex string) string {
	key := strings.ToLower(chainIDHex)
	if b, ok := evmMapping[key]; ok {
		return b.Name
	}
	if n, ok := parseHex(key); ok {
		return fmt.Sprintf("Chain %s", n.String())
	}
	return fmt.Sprintf("Chain %s", chainIDHex)
}

// SolanaClusterName resolves a cluster name, unknown clusters render as "Solana {raw}".
func SolanaClusterName(network string) string {
	if name, ok := solanaClusters[network]; ok {
		return name
	}
	return fmt.Sprintf("Solana %s", network)
}

// NetworkName resolves the display name of a network for the given chain family.
// Ethereum networks are expected in hex, see DecimalToHex.
func NetworkName(chain, network string) string {
	if network == "" {
		return UnknownNetwork
	}
	switch Kind(chain) {
	case Ethereum:
		return EthereumNetworkName(network)
	case Solana:
		return SolanaClusterName(network)
	}
	return UnknownNetwork
}

// ParseChainID parses a 0x prefixed hex chain id, leading zeros allowed.
func ParseChainID(hex string) (*big.Int, bool) {
	return parseHex(strings.TrimSpace(hex))
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func parseHex(s string) (*big.Int, bool) {
	if !has0xPrefix(s) || len(s) == 2 {
		return nil, false
	}
	return new(big.Int).SetString(s[2:], 16)
}
