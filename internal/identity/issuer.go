// Package identity is a development stand-in for the identity service: it verifies wallet
// proofs and issues sessions carrying the wallet in their custom claims.
package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/claims"
	"moff.io/walletauth/internal/exchange"
	"moff.io/walletauth/pkg/common"
	"moff.io/walletauth/pkg/log"
)

// Error codes returned to clients.
const (
	CodeInvalidRequest   = "validation_failed"
	CodeInvalidSignature = "invalid_signature"
	CodeNonceReused      = "nonce_reused"
	CodeMessageExpired   = "message_expired"
	CodeServerError      = "unexpected_failure"
)

const (
	defaultTokenTTL      = time.Hour
	defaultMaxAge        = 10 * time.Minute
	defaultClockSkew     = time.Minute
	defaultSolanaNetwork = "mainnet-beta"
)

var userNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

type Config struct {
	Secret []byte
	Issuer string
	// Domain is the only domain accepted in sign-in messages, empty accepts any.
	Domain        string
	SolanaNetwork string
	TokenTTL      time.Duration
	// MaxAge bounds how old an Issued At may be.
	MaxAge time.Duration
}

type Issuer struct {
	cfg   Config
	guard ReplayGuard
	now   func() time.Time
}

func NewIssuer(cfg Config, guard ReplayGuard) *Issuer {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultMaxAge
	}
	if cfg.SolanaNetwork == "" {
		cfg.SolanaNetwork = defaultSolanaNetwork
	}
	if guard == nil {
		guard = NewMemoryReplayGuard()
	}
	return &Issuer{cfg: cfg, guard: guard, now: time.Now}
}

func reject(status int, code, msg string) *exchange.Error {
	return &exchange.Error{Message: msg, Status: status, Code: code}
}

// Exchange verifies proof and issues a session. Rejections carry an HTTP status.
func (is *Issuer) Exchange(ctx context.Context, proof *exchange.Proof) (*exchange.Session, *exchange.Error) {
	msg, err := exchange.ParseMessage(proof.Message)
	if err != nil {
		return nil, reject(http.StatusBadRequest, CodeInvalidRequest, "Invalid sign-in message: "+err.Error())
	}
	if msg.Chain != proof.Chain {
		return nil, reject(http.StatusBadRequest, CodeInvalidRequest, "Sign-in message chain does not match request")
	}
	if is.cfg.Domain != "" && !strings.EqualFold(msg.Domain, is.cfg.Domain) {
		return nil, reject(http.StatusBadRequest, CodeInvalidRequest, "Sign-in message domain is not allowed")
	}
	now := is.now()
	if msg.Expired(now) || now.Sub(msg.IssuedAt) > is.cfg.MaxAge {
		return nil, reject(http.StatusBadRequest, CodeMessageExpired, "Sign-in message has expired")
	}
	if msg.IssuedAt.Sub(now) > defaultClockSkew {
		return nil, reject(http.StatusBadRequest, CodeInvalidRequest, "Sign-in message is issued in the future")
	}

	var network string
	switch msg.Chain {
	case chain.Ethereum:
		err = VerifyEthereum(msg.Address, proof.Message, proof.Signature)
		network = msg.ChainID
	case chain.Solana:
		err = VerifySolana(msg.Address, proof.Message, proof.Signature)
		network = is.cfg.SolanaNetwork
	default:
		return nil, reject(http.StatusBadRequest, CodeInvalidRequest, "Unsupported chain")
	}
	if err != nil {
		log.Infof("identity - rejected %v proof for %v:%v", msg.Chain, msg.Address, err)
		return nil, reject(http.StatusUnauthorized, CodeInvalidSignature, "Signature verification failed")
	}

	fresh, err := is.guard.Claim(ctx, msg.Domain+":"+msg.Nonce, is.cfg.MaxAge+defaultClockSkew)
	if err != nil {
		log.Errorf("identity - replay guard:%v", err)
		return nil, reject(http.StatusInternalServerError, CodeServerError, "Unable to verify nonce")
	}
	if !fresh {
		return nil, reject(http.StatusBadRequest, CodeNonceReused, "Sign-in message was already used")
	}

	session, err := is.issue(msg, network, now)
	if err != nil {
		log.Errorf("identity - issue session:%v", err)
		return nil, reject(http.StatusInternalServerError, CodeServerError, "Unable to issue session")
	}
	return session, nil
}

type user struct {
	ID           string                 `json:"id"`
	Aud          string                 `json:"aud"`
	Role         string                 `json:"role"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

// UserID is stable per wallet, Ethereum addresses are case-insensitive.
func UserID(kind chain.Kind, address string) string {
	if kind == chain.Ethereum {
		address = strings.ToLower(address)
	}
	return uuid.NewSHA1(userNamespace, []byte(string(kind)+":"+address)).String()
}

func (is *Issuer) issue(msg *exchange.Message, network string, now time.Time) (*exchange.Session, error) {
	custom := claims.Custom{
		Address:   msg.Address,
		Chain:     string(msg.Chain),
		Network:   network,
		Domain:    msg.Domain,
		Statement: msg.Statement,
	}
	u := user{
		ID:   UserID(msg.Chain, msg.Address),
		Aud:  "authenticated",
		Role: "authenticated",
		UserMetadata: map[string]interface{}{
			"custom_claims": custom,
		},
	}
	expiresAt := now.Add(is.cfg.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":           is.cfg.Issuer,
		"sub":           u.ID,
		"aud":           u.Aud,
		"role":          u.Role,
		"iat":           now.Unix(),
		"exp":           expiresAt.Unix(),
		"session_id":    uuid.NewString(),
		"user_metadata": u.UserMetadata,
	})
	signed, err := token.SignedString(is.cfg.Secret)
	if err != nil {
		return nil, err
	}
	rawUser, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	return &exchange.Session{
		AccessToken:  signed,
		TokenType:    "bearer",
		ExpiresIn:    int64(is.cfg.TokenTTL / time.Second),
		ExpiresAt:    expiresAt.Unix(),
		RefreshToken: common.NewCutUUIDString(),
		User:         rawUser,
	}, nil
}

// Local exchanges proofs with an in-process Issuer, no HTTP round trip.
type Local struct {
	signer *exchange.Signer
	issuer *Issuer
}

func NewLocal(signer *exchange.Signer, issuer *Issuer) *Local {
	return &Local{signer: signer, issuer: issuer}
}

func (l *Local) Exchange(ctx context.Context, req exchange.Request) (*exchange.Response, error) {
	proof, err := l.signer.Prove(ctx, req)
	if err != nil {
		return nil, err
	}
	session, rejection := l.issuer.Exchange(ctx, proof)
	if rejection != nil {
		return &exchange.Response{Error: rejection}, nil
	}
	return &exchange.Response{Session: session}, nil
}
