package exchange

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/provider"
)

var issuedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedSigner() *Signer {
	s := NewSigner("app.example.com", "https://app.example.com/login", 10*time.Minute)
	s.now = func() time.Time { return issuedAt }
	return s
}

func connectedEthereum(t *testing.T, opts ...provider.KeyedOption) *provider.KeyedEthereum {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	w := provider.NewKeyedEthereum(key, 137, opts...)
	_, err = provider.RequestAccounts(context.Background(), w)
	require.NoError(t, err)
	return w
}

func connectedSolana(t *testing.T, opts ...provider.KeyedOption) *provider.KeyedSolana {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w := provider.NewKeyedSolana(key, opts...)
	_, err = w.Connect(context.Background())
	require.NoError(t, err)
	return w
}

func TestMessageText(t *testing.T) {
	m := &Message{
		Domain:    "app.example.com",
		Address:   "0xAbC",
		Chain:     chain.Ethereum,
		Statement: "Sign in to access your account",
		URI:       "https://app.example.com",
		ChainID:   "1",
		Nonce:     "abc123",
		IssuedAt:  issuedAt,
	}
	expected := "app.example.com wants you to sign in with your Ethereum account:\n" +
		"0xAbC\n\n" +
		"Sign in to access your account\n\n" +
		"URI: https://app.example.com\n" +
		"Version: 1\n" +
		"Chain ID: 1\n" +
		"Nonce: abc123\n" +
		"Issued At: 2025-03-01T12:00:00Z"
	assert.Equal(t, expected, m.String())

	parsed, err := ParseMessage(m.String())
	require.NoError(t, err)
	assert.Equal(t, "1", parsed.Version)
	assert.Equal(t, m.Statement, parsed.Statement)
	assert.True(t, parsed.IssuedAt.Equal(issuedAt))
}

func TestSolanaMessageHasNoChainID(t *testing.T) {
	m := &Message{
		Domain:         "localhost:8080",
		Address:        "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		Chain:          chain.Solana,
		Statement:      "line one\nline two",
		URI:            "http://localhost:8080",
		Nonce:          "n",
		IssuedAt:       issuedAt,
		ExpirationTime: issuedAt.Add(time.Hour),
	}
	text := m.String()
	assert.NotContains(t, text, "Chain ID")
	assert.Contains(t, text, "with your Solana account")

	parsed, err := ParseMessage(text)
	require.NoError(t, err)
	assert.Equal(t, chain.Solana, parsed.Chain)
	assert.Equal(t, "line one\nline two", parsed.Statement)
	assert.Equal(t, "localhost:8080", parsed.Domain)
	assert.False(t, parsed.Expired(issuedAt.Add(time.Minute)))
	assert.True(t, parsed.Expired(issuedAt.Add(2*time.Hour)))
}

func TestParseMessageRejectsMalformed(t *testing.T) {
	for _, text := range []string{
		"",
		"hello\nworld\n",
		"a.com wants you to sign in with your Bitcoin account:\nbc1\n\nNonce: x",
		"a.com wants you to sign in with your Ethereum account:\n0x1\n\nURI: u\nVersion: 1\nNonce: n\nIssued At: 2025-03-01T12:00:00Z",
		"a.com wants you to sign in with your Solana account:\nkey\n\nURI: u\nNonce: n\nIssued At: yesterday",
		"a.com wants you to sign in with your Solana account:\nkey\n\nURI: u\nNonce: n\nIssued At: 2025-03-01T12:00:00Z\nResources: x",
	} {
		_, err := ParseMessage(text)
		assert.Error(t, err, text)
	}
}

func TestProveEthereum(t *testing.T) {
	w := connectedEthereum(t)
	proof, err := fixedSigner().Prove(context.Background(), Request{Chain: chain.Ethereum, Provider: w})
	require.NoError(t, err)

	msg, err := ParseMessage(proof.Message)
	require.NoError(t, err)
	assert.Equal(t, "137", msg.ChainID)
	assert.Equal(t, DefaultStatement, msg.Statement)
	assert.Equal(t, w.Address().Hex(), msg.Address)
	assert.True(t, msg.ExpirationTime.Equal(issuedAt.Add(10*time.Minute)))
	assert.Len(t, msg.Nonce, 32)

	sig, err := hexutil.Decode(proof.Signature)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(proof.Message)), sig)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), crypto.PubkeyToAddress(*pub))
}

// zeroPadded reports its chain id with leading zeros, as some wallets do.
type zeroPadded struct {
	*provider.KeyedEthereum
	chainID string
}

func (z *zeroPadded) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if method == provider.MethodChainID {
		return json.Marshal(z.chainID)
	}
	return z.KeyedEthereum.Request(ctx, method, params...)
}

func TestProveEthereumLeadingZeroChainID(t *testing.T) {
	w := &zeroPadded{KeyedEthereum: connectedEthereum(t), chainID: "0x01"}
	proof, err := fixedSigner().Prove(context.Background(), Request{Chain: chain.Ethereum, Provider: w})
	require.NoError(t, err)
	msg, err := ParseMessage(proof.Message)
	require.NoError(t, err)
	assert.Equal(t, "1", msg.ChainID)

	w.chainID = "0xzz"
	_, err = fixedSigner().Prove(context.Background(), Request{Chain: chain.Ethereum, Provider: w})
	assert.ErrorContains(t, err, "decode chain id")
}

func TestProveSolana(t *testing.T) {
	w := connectedSolana(t)
	proof, err := fixedSigner().Prove(context.Background(), Request{Chain: chain.Solana, Statement: "Hello", Provider: w})
	require.NoError(t, err)
	assert.Equal(t, chain.Solana, proof.Chain)

	sig, err := solana.SignatureFromBase58(proof.Signature)
	require.NoError(t, err)
	assert.True(t, sig.Verify(w.PublicKey(), []byte(proof.Message)))
	assert.Contains(t, proof.Message, "\nHello\n")
}

func TestProveFailures(t *testing.T) {
	ctx := context.Background()
	s := fixedSigner()

	_, err := s.Prove(ctx, Request{Chain: chain.Ethereum, Provider: connectedSolana(t)})
	assert.EqualError(t, err, "Unsupported wallet type")

	key, _ := crypto.GenerateKey()
	_, err = s.Prove(ctx, Request{Chain: chain.Ethereum, Provider: provider.NewKeyedEthereum(key, 1)})
	assert.EqualError(t, err, "No accounts returned from wallet")

	skey, _ := solana.NewRandomPrivateKey()
	_, err = s.Prove(ctx, Request{Chain: chain.Solana, Provider: provider.NewKeyedSolana(skey)})
	assert.EqualError(t, err, "No public key returned from wallet")

	rejecting := 0
	approve := func(_ context.Context, method string) error {
		if method == provider.MethodPersonalSign {
			rejecting++
			return provider.ErrUserRejected
		}
		return nil
	}
	_, err = s.Prove(ctx, Request{Chain: chain.Ethereum, Provider: connectedEthereum(t, provider.WithApprover(approve))})
	assert.True(t, provider.IsUserRejected(err))
	assert.Equal(t, 1, rejecting)
}

func TestClientExchange(t *testing.T) {
	var gotAPIKey, gotGrant string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("apikey")
		gotGrant = r.URL.Query().Get("grant_type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600,"user":{"id":"u1"}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL + "/", APIKey: "anon", Domain: "app.example.com", URI: "https://app.example.com"})
	resp, err := client.Exchange(context.Background(), Request{Chain: chain.Solana, Provider: connectedSolana(t)})
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	assert.Equal(t, "tok", resp.Session.AccessToken)
	assert.Equal(t, int64(3600), resp.Session.ExpiresIn)
	assert.JSONEq(t, `{"id":"u1"}`, string(resp.Session.User))

	assert.Equal(t, "anon", gotAPIKey)
	assert.Equal(t, "web3", gotGrant)
	body := gjson.ParseBytes(gotBody)
	assert.Equal(t, "solana", body.Get("chain").String())
	assert.True(t, strings.HasPrefix(body.Get("message").String(), "app.example.com wants you to sign in"))
	assert.NotEmpty(t, body.Get("signature").String())
}

func TestClientServiceErrorPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code":       400,
			"error_code": "web3_provider_disabled",
			"msg":        "Web3 provider is disabled",
		})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Domain: "d", URI: "u"})
	resp, err := client.Exchange(context.Background(), Request{Chain: chain.Ethereum, Provider: connectedEthereum(t)})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Nil(t, resp.Session)
	assert.Equal(t, "Web3 provider is disabled", resp.Error.Message)
	assert.Equal(t, "web3_provider_disabled", resp.Error.Code)
	assert.Equal(t, http.StatusBadRequest, resp.Error.Status)
}

func TestParseServiceErrorFallbacks(t *testing.T) {
	assert.Equal(t, "boom", parseServiceError(500, []byte("boom")).Message)
	assert.Equal(t, "Unauthorized", parseServiceError(401, nil).Message)
	assert.Equal(t, "bad nonce", parseServiceError(400, []byte(`{"error":"invalid_grant","error_description":"bad nonce"}`)).Message)
}
