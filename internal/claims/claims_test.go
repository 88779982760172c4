package claims

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func view(t *testing.T, bag string) View {
	t.Helper()
	return Project(Decode([]byte(bag)))
}

func TestDecodeLocations(t *testing.T) {
	c, ok := Decode([]byte(`{"user_metadata":{"custom_claims":{"address":"0xabc","chain":"ethereum","network":"1"}}}`)).Get()
	require.True(t, ok)
	assert.Equal(t, Custom{Address: "0xabc", Chain: "ethereum", Network: "1"}, c)

	c, ok = Decode([]byte(`{"claims":{"user_metadata":{"custom_claims":{"address":"So1","chain":"solana"}}}}`)).Get()
	require.True(t, ok)
	assert.Equal(t, "So1", c.Address)
}

func TestDecodeAbsent(t *testing.T) {
	for _, bag := range []string{
		``,
		`not json`,
		`{}`,
		`{"user_metadata":{}}`,
		`{"user_metadata":{"custom_claims":"0xabc"}}`,
		`{"user_metadata":{"custom_claims":null}}`,
		`[1,2]`,
	} {
		assert.False(t, Decode([]byte(bag)).IsPresent(), bag)
	}
}

func TestDecodeToleratesOddFieldTypes(t *testing.T) {
	c, ok := Decode([]byte(`{"user_metadata":{"custom_claims":{"address":42,"network":137,"statement":{"x":1},"domain":true}}}`)).Get()
	require.True(t, ok)
	assert.Equal(t, "42", c.Address)
	assert.Equal(t, "137", c.Network)
	assert.Empty(t, c.Statement)
	assert.Empty(t, c.Domain)
}

func TestEthereumNetworks(t *testing.T) {
	v := view(t, `{"user_metadata":{"custom_claims":{"chain":"ethereum","network":"137"}}}`)
	assert.Equal(t, "0x89", v.ChainID)
	assert.Equal(t, "Polygon", v.Network)

	v = view(t, `{"user_metadata":{"custom_claims":{"chain":"ethereum","network":"57005"}}}`)
	assert.Equal(t, "0xdead", v.ChainID)
	assert.Equal(t, "Chain 57005", v.Network)

	v = view(t, `{"user_metadata":{"custom_claims":{"chain":"ethereum","network":11155111}}}`)
	assert.Equal(t, "Sepolia Testnet", v.Network)

	v = view(t, `{"user_metadata":{"custom_claims":{"chain":"ethereum","network":"mainnet"}}}`)
	assert.Equal(t, "Chain mainnet", v.Network)
}

func TestSolanaNetworks(t *testing.T) {
	cases := map[string]string{
		"mainnet-beta": "Solana Mainnet",
		"101":          "Solana Mainnet",
		"devnet":       "Solana Devnet",
		"testnet":      "Solana Testnet",
		"unknown-x":    "Solana unknown-x",
	}
	for network, expected := range cases {
		v := view(t, `{"user_metadata":{"custom_claims":{"chain":"solana","network":"`+network+`"}}}`)
		assert.Equal(t, expected, v.Network, network)
		assert.Equal(t, network, v.ChainID)
	}
}

func TestProjectDefaultsAndPlaceholders(t *testing.T) {
	v := Project(Absent())
	assert.Equal(t, View{
		Address:      "Not available",
		ShortAddress: "Not available",
		Chain:        "ethereum",
		ChainName:    "Ethereum",
		ChainSymbol:  "Ξ",
		Network:      "Unknown Network",
		Statement:    "Not available",
		Domain:       "Not available",
	}, v)

	v = view(t, `{"user_metadata":{"custom_claims":{"address":"0x1234567890abcdef1234567890abcdef12345678","network":"1","domain":"app.example.com","statement":"Sign in"}}}`)
	assert.Equal(t, "ethereum", v.Chain)
	assert.Equal(t, "Ethereum Mainnet", v.Network)
	assert.Equal(t, "0x123456...345678", v.ShortAddress)
	assert.Equal(t, "app.example.com", v.Domain)
	assert.Equal(t, "Sign in", v.Statement)

	v = view(t, `{"user_metadata":{"custom_claims":{"address":"9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin","chain":"solana"}}}`)
	assert.Equal(t, "9xQeWv...usVFin", v.ShortAddress)
	assert.Equal(t, "◎", v.ChainSymbol)
	assert.Equal(t, "Unknown Network", v.Network)

	v = view(t, `{"user_metadata":{"custom_claims":{"chain":"bitcoin","network":"main"}}}`)
	assert.Equal(t, "bitcoin", v.ChainName)
	assert.Equal(t, "🔗", v.ChainSymbol)
	assert.Equal(t, "Unknown Network", v.Network)
}

func signed(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func TestDecodeTokens(t *testing.T) {
	secret := []byte("dev-secret")
	token := signed(t, secret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]interface{}{
			"custom_claims": map[string]interface{}{"address": "0xabc", "chain": "ethereum", "network": "8453"},
		},
	})

	r, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "Base", Project(r).Network)

	r, err = DecodeVerifiedToken(token, secret)
	require.NoError(t, err)
	assert.True(t, r.IsPresent())

	_, err = DecodeVerifiedToken(token, []byte("other"))
	assert.Error(t, err)

	_, err = DecodeToken("garbage")
	assert.Error(t, err)

	expired := signed(t, secret, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	_, err = DecodeVerifiedToken(expired, secret)
	assert.Error(t, err)

	r, err = DecodeToken(expired)
	require.NoError(t, err)
	assert.False(t, r.IsPresent())
}
