package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	k, ok := ParseKind(" Solana ")
	assert.True(t, ok)
	assert.Equal(t, Solana, k)
	assert.Equal(t, "Solana", k.DisplayName())
	assert.Equal(t, "SOL", k.Short())

	k, ok = ParseKind("ETHEREUM")
	assert.True(t, ok)
	assert.Equal(t, "ETH", k.Short())

	_, ok = ParseKind("tron")
	assert.False(t, ok)
	assert.Equal(t, "TRON", Kind("tron").Short())
	assert.Equal(t, "tron", Kind("tron").DisplayName())
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "0x1234...cdef", FormatAddress("0x1234567890abcdef1234567890abcdef", Ethereum, 4))
	assert.Equal(t, "7xKX...gAsU", FormatAddress("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", Solana, 4))
	assert.Equal(t, "abc", FormatAddress("abc", Solana, 4))
	assert.Empty(t, FormatAddress("", Ethereum, 4))
}

func TestDecimalToHex(t *testing.T) {
	cases := map[string]string{
		"1":        "0x1",
		"137":      "0x89",
		"0":        "0x0",
		"0XA4B1":   "0xa4b1",
		"11155111": "0xaa36a7",
	}
	for in, want := range cases {
		got, ok := DecimalToHex(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "-1", "0x", "0xzz", "twelve"} {
		_, ok := DecimalToHex(bad)
		assert.False(t, ok, bad)
	}
}

func TestNetworkName(t *testing.T) {
	assert.Equal(t, "Polygon", NetworkName("ethereum", "0x89"))
	assert.Equal(t, "Base", NetworkName("ethereum", "0x2105"))
	assert.Equal(t, "Chain 56", NetworkName("ethereum", "0x38"))
	assert.Equal(t, "Chain bsc", NetworkName("ethereum", "bsc"))
	assert.Equal(t, "Solana Mainnet", NetworkName("solana", "mainnet-beta"))
	assert.Equal(t, "Solana Devnet", NetworkName("solana", "devnet"))
	assert.Equal(t, "Solana localnet", NetworkName("solana", "localnet"))
	assert.Equal(t, UnknownNetwork, NetworkName("ethereum", ""))
	assert.Equal(t, UnknownNetwork, NetworkName("tron", "0x1"))
}

func TestBlockchainSymbol(t *testing.T) {
	assert.Equal(t, "Ξ", BlockchainSymbol("ethereum"))
	assert.Equal(t, "◎", BlockchainSymbol("solana"))
	assert.Equal(t, "🔗", BlockchainSymbol("tron"))
}

func TestParseChainID(t *testing.T) {
	for in, want := range map[string]int64{"0x1": 1, "0x01": 1, "0X0089": 137, " 0xa ": 10} {
		n, ok := ParseChainID(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, n.Int64(), in)
	}
	for _, bad := range []string{"", "1", "0x", "0xg1"} {
		_, ok := ParseChainID(bad)
		assert.False(t, ok, bad)
	}
}
