package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"moff.io/walletauth/internal/provider"
)

type stub string

func (s stub) ID() string { return string(s) }

func TestParseSlot(t *testing.T) {
	for _, name := range []string{"ethereum", "phantom.solana", "solana", "solflare", "backpack", "braveSolana"} {
		slot, ok := ParseSlot(name)
		assert.True(t, ok, name)
		assert.Equal(t, Slot(name), slot)
	}
	_, ok := ParseSlot("phantom.ethereum")
	assert.False(t, ok)
	_, ok = ParseSlot("")
	assert.False(t, ok)
}

func TestStaticLookup(t *testing.T) {
	s := Static{Ethereum: stub("mm"), Solana: nil}

	p, ok := s.Lookup(Ethereum)
	assert.True(t, ok)
	assert.Equal(t, "mm", p.ID())

	_, ok = s.Lookup(Solana)
	assert.False(t, ok)
	_, ok = s.Lookup(Backpack)
	assert.False(t, ok)

	var _ Probe = s
	var _ provider.Provider = stub("")
}
