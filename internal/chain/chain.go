package chain

import "strings"

// Kind identifies the chain family a wallet handle or a session belongs to.
type Kind string

const (
	Ethereum Kind = "ethereum"
	Solana   Kind = "solana"
)

func (k Kind) Valid() bool {
	return k == Ethereum || k == Solana
}

// DisplayName returns "Ethereum" or "Solana", unknown kinds are returned as is.
func (k Kind) DisplayName() string {
	return BlockchainName(string(k))
}

// Short returns the ticker used on single-chain wallet badges.
func (k Kind) Short() string {
	switch k {
	case Ethereum:
		return "ETH"
	case Solana:
		return "SOL"
	}
	return strings.ToUpper(string(k))
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts chain names case-insensitively.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

var (
	blockchainNames = map[string]string{
		"ethereum": "Ethereum",
		"solana":   "Solana",
	}
	blockchainSymbols = map[string]string{
		"ethereum": "Ξ",
		"solana":   "◎",
	}
)

// BlockchainName returns the display name of a chain family, unknown chains are returned unchanged.
func BlockchainName(chain string) string {
	if name, ok := blockchainNames[chain]; ok {
		return name
	}
	return chain
}

// BlockchainSymbol returns the currency glyph of a chain family.
func BlockchainSymbol(chain string) string {
	if symbol, ok := blockchainSymbols[chain]; ok {
		return symbol
	}
	return "🔗"
}

// FormatAddress shortens an address to its head and tail, keeping the 0x prefix of Ethereum addresses.
func FormatAddress(address string, kind Kind, chars int) string {
	if address == "" {
		return ""
	}
	head := chars
	if kind == Ethereum {
		head = chars + 2
	}
	if head+chars >= len(address) {
		return address
	}
	return address[:head] + "..." + address[len(address)-chars:]
}
