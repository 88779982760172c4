package exchange

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/pkg/common"
	"moff.io/walletauth/pkg/errors"
)

// Proof is a signed sign-in message ready for submission.
type Proof struct {
	Chain     chain.Kind `json:"chain"`
	Message   string     `json:"message"`
	Signature string     `json:"signature"`
}

// Signer builds sign-in messages for a site and has wallets sign them.
type Signer struct {
	Domain string
	URI    string
	// TTL bounds the message validity, zero means no expiration.
	TTL time.Duration
	now func() time.Time
}

func NewSigner(domain, uri string, ttl time.Duration) *Signer {
	return &Signer{Domain: domain, URI: uri, TTL: ttl, now: time.Now}
}

// Prove builds the message for the connected wallet and asks it for a signature. Ethereum
// signatures are hex encoded, Solana signatures base58.
func (s *Signer) Prove(ctx context.Context, req Request) (*Proof, error) {
	statement := req.Statement
	if statement == "" {
		statement = DefaultStatement
	}
	now := s.now()
	msg := &Message{
		Domain:    s.Domain,
		Chain:     req.Chain,
		Statement: statement,
		URI:       s.URI,
		Version:   "1",
		Nonce:     common.NewCutUUIDString(),
		IssuedAt:  now,
	}
	if s.TTL > 0 {
		msg.ExpirationTime = now.Add(s.TTL)
	}
	switch req.Chain {
	case chain.Ethereum:
		p, ok := req.Provider.(provider.Ethereum)
		if !ok {
			return nil, errors.New("Unsupported wallet type")
		}
		return s.proveEthereum(ctx, p, msg)
	case chain.Solana:
		p, ok := req.Provider.(provider.Solana)
		if !ok {
			return nil, errors.New("Unsupported wallet type")
		}
		return s.proveSolana(ctx, p, msg)
	}
	return nil, errors.Errorf("unsupported chain %v", req.Chain)
}

func (s *Signer) proveEthereum(ctx context.Context, p provider.Ethereum, msg *Message) (*Proof, error) {
	accounts, err := provider.Accounts(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, errors.New("No accounts returned from wallet")
	}
	chainID, err := provider.ChainID(ctx, p)
	if err != nil {
		return nil, err
	}
	id, ok := chain.ParseChainID(chainID)
	if !ok {
		return nil, errors.Errorf("decode chain id %v", chainID)
	}
	msg.Address = accounts[0]
	msg.ChainID = id.String()
	text := msg.String()

	raw, err := p.Request(ctx, provider.MethodPersonalSign, hexutil.Encode([]byte(text)), msg.Address)
	if err != nil {
		return nil, err
	}
	var signature string
	if err := json.Unmarshal(raw, &signature); err != nil || signature == "" {
		return nil, errors.Errorf("wallet returned malformed signature %s", string(raw))
	}
	return &Proof{Chain: chain.Ethereum, Message: text, Signature: signature}, nil
}

func (s *Signer) proveSolana(ctx context.Context, p provider.Solana, msg *Message) (*Proof, error) {
	key := p.PublicKey()
	if key.IsZero() {
		return nil, errors.New("No public key returned from wallet")
	}
	msg.Address = key.String()
	text := msg.String()
	sig, err := p.SignMessage(ctx, []byte(text))
	if err != nil {
		return nil, err
	}
	return &Proof{Chain: chain.Solana, Message: text, Signature: sig.String()}, nil
}
