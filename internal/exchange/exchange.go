// Package exchange talks to the identity service that turns a signed wallet proof into a session.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"

	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/provider"
)

// DefaultStatement is shown to users when the caller provides none.
const DefaultStatement = "Sign in to access your account"

// Request is what the dispatcher hands over once the wallet is connected.
type Request struct {
	Chain     chain.Kind
	Statement string
	Provider  provider.Provider
}

// Session is the identity service's session, opaque to the sign-in flow.
type Session struct {
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int64           `json:"expires_in"`
	ExpiresAt    int64           `json:"expires_at,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
}

// Error is an error reported by the identity service in its response body.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

// Response carries either a session or the service error.
type Response struct {
	Session *Session
	Error   *Error
}

// Exchanger signs the proof with the wallet and submits it. A non-nil error is a fault of the
// wallet or the transport, service rejections come back in Response.Error.
type Exchanger interface {
	Exchange(ctx context.Context, req Request) (*Response, error)
}

// ExchangerFunc adapts a function to Exchanger.
type ExchangerFunc func(ctx context.Context, req Request) (*Response, error)

func (f ExchangerFunc) Exchange(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
