package identity

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/claims"
	"moff.io/walletauth/internal/exchange"
	"moff.io/walletauth/internal/provider"
)

var secret = []byte("test-secret")

func newIssuer() *Issuer {
	return NewIssuer(Config{Secret: secret, Issuer: "walletauth-dev", Domain: "app.example.com", SolanaNetwork: "devnet"}, nil)
}

func ethereumWallet(t *testing.T, chainID uint64) *provider.KeyedEthereum {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	w := provider.NewKeyedEthereum(key, chainID)
	_, err = provider.RequestAccounts(context.Background(), w)
	require.NoError(t, err)
	return w
}

func solanaWallet(t *testing.T) *provider.KeyedSolana {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w := provider.NewKeyedSolana(key)
	_, err = w.Connect(context.Background())
	require.NoError(t, err)
	return w
}

func prove(t *testing.T, kind chain.Kind, p provider.Provider) *exchange.Proof {
	proof, err := exchange.NewSigner("app.example.com", "https://app.example.com", 5*time.Minute).
		Prove(context.Background(), exchange.Request{Chain: kind, Provider: p, Statement: "Sign in to Example"})
	require.NoError(t, err)
	return proof
}

func TestIssueEthereumSession(t *testing.T) {
	w := ethereumWallet(t, 137)
	session, rejection := newIssuer().Exchange(context.Background(), prove(t, chain.Ethereum, w))
	require.Nil(t, rejection)
	assert.Equal(t, "bearer", session.TokenType)
	assert.Equal(t, int64(3600), session.ExpiresIn)
	assert.NotEmpty(t, session.RefreshToken)

	r, err := claims.DecodeVerifiedToken(session.AccessToken, secret)
	require.NoError(t, err)
	view := claims.Project(r)
	assert.Equal(t, w.Address().Hex(), view.Address)
	assert.Equal(t, "Polygon", view.Network)
	assert.Equal(t, "app.example.com", view.Domain)
	assert.Equal(t, "Sign in to Example", view.Statement)

	user := gjson.ParseBytes(session.User)
	assert.Equal(t, UserID(chain.Ethereum, w.Address().Hex()), user.Get("id").String())
	assert.Equal(t, "137", user.Get("user_metadata.custom_claims.network").String())
}

func TestIssueSolanaSession(t *testing.T) {
	w := solanaWallet(t)
	session, rejection := newIssuer().Exchange(context.Background(), prove(t, chain.Solana, w))
	require.Nil(t, rejection)

	r, err := claims.DecodeToken(session.AccessToken)
	require.NoError(t, err)
	view := claims.Project(r)
	assert.Equal(t, "solana", view.Chain)
	assert.Equal(t, "Solana Devnet", view.Network)
	assert.Equal(t, w.PublicKey().String(), view.Address)
}

func TestRejections(t *testing.T) {
	ctx := context.Background()
	is := newIssuer()
	w := ethereumWallet(t, 1)

	proof := prove(t, chain.Ethereum, w)
	_, rejection := is.Exchange(ctx, proof)
	require.Nil(t, rejection)
	_, rejection = is.Exchange(ctx, proof)
	require.NotNil(t, rejection)
	assert.Equal(t, CodeNonceReused, rejection.Code)

	forged := prove(t, chain.Ethereum, w)
	forged.Signature = prove(t, chain.Ethereum, ethereumWallet(t, 1)).Signature
	_, rejection = is.Exchange(ctx, forged)
	require.NotNil(t, rejection)
	assert.Equal(t, http.StatusUnauthorized, rejection.Status)
	assert.Equal(t, CodeInvalidSignature, rejection.Code)

	mismatched := prove(t, chain.Ethereum, w)
	mismatched.Chain = chain.Solana
	_, rejection = is.Exchange(ctx, mismatched)
	assert.Equal(t, CodeInvalidRequest, rejection.Code)

	foreign := prove(t, chain.Ethereum, w)
	foreign.Message = strings.Replace(foreign.Message, "app.example.com wants", "evil.example.com wants", 1)
	_, rejection = is.Exchange(ctx, foreign)
	assert.Equal(t, "Sign-in message domain is not allowed", rejection.Message)

	_, rejection = is.Exchange(ctx, &exchange.Proof{Chain: chain.Ethereum, Message: "hello", Signature: "0x00"})
	assert.Equal(t, http.StatusBadRequest, rejection.Status)

	late := newIssuer()
	late.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, rejection = late.Exchange(ctx, prove(t, chain.Solana, solanaWallet(t)))
	assert.Equal(t, CodeMessageExpired, rejection.Code)

	early := newIssuer()
	early.now = func() time.Time { return time.Now().Add(-time.Hour) }
	_, rejection = early.Exchange(ctx, prove(t, chain.Solana, solanaWallet(t)))
	assert.Equal(t, "Sign-in message is issued in the future", rejection.Message)
}

func TestVerifySolanaRejectsOtherKey(t *testing.T) {
	w := solanaWallet(t)
	proof := prove(t, chain.Solana, w)
	other := solanaWallet(t)
	assert.NoError(t, VerifySolana(w.PublicKey().String(), proof.Message, proof.Signature))
	assert.Error(t, VerifySolana(other.PublicKey().String(), proof.Message, proof.Signature))
	assert.Error(t, VerifySolana("not-base58!", proof.Message, proof.Signature))
}

func TestVerifyEthereumInputs(t *testing.T) {
	assert.Error(t, VerifyEthereum("nope", "m", "0x00"))
	assert.Error(t, VerifyEthereum("0x0000000000000000000000000000000000000001", "m", "zz"))
	assert.Error(t, VerifyEthereum("0x0000000000000000000000000000000000000001", "m", "0x0011"))
}

func TestUserIDIsStable(t *testing.T) {
	addr := "0xAbCdEf0000000000000000000000000000000001"
	assert.Equal(t, UserID(chain.Ethereum, addr), UserID(chain.Ethereum, strings.ToLower(addr)))
	assert.NotEqual(t, UserID(chain.Ethereum, addr), UserID(chain.Solana, addr))
}

func TestMemoryReplayGuardExpires(t *testing.T) {
	now := time.Now()
	g := NewMemoryReplayGuard()
	g.now = func() time.Time { return now }

	ok, err := g.Claim(context.Background(), "n1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = g.Claim(context.Background(), "n1", time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = g.Claim(context.Background(), "n1", time.Minute)
	assert.True(t, ok)
}

func TestLocalExchanger(t *testing.T) {
	local := NewLocal(exchange.NewSigner("app.example.com", "https://app.example.com", 0), newIssuer())
	resp, err := local.Exchange(context.Background(), exchange.Request{Chain: chain.Solana, Provider: solanaWallet(t)})
	require.NoError(t, err)
	require.NotNil(t, resp.Session)

	local = NewLocal(exchange.NewSigner("other.example.com", "https://other.example.com", 0), newIssuer())
	resp, err = local.Exchange(context.Background(), exchange.Request{Chain: chain.Solana, Provider: solanaWallet(t)})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Nil(t, resp.Session)
}
