package auth

import (
	"context"
	"fmt"

	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/pkg/errors"
)

// Kind classifies a failed dispatch.
type Kind string

const (
	KindUserRejected  Kind = "user_rejected"
	KindNoProvider    Kind = "no_provider"
	KindNoAccounts    Kind = "no_accounts"
	KindProviderFault Kind = "provider_fault"
	KindExchangeFault Kind = "exchange_fault"
	KindUnsupported   Kind = "unsupported"
	KindCanceled      Kind = "canceled"
	KindBusy          Kind = "busy"
)

// 面向用户的提示文案
const (
	MsgUserRejected       = "User rejected the connection request"
	MsgSignatureRejected  = "User rejected the signature request"
	MsgUnsupported        = "Unsupported wallet type"
	MsgBusy               = "A sign-in is already in progress"
	MsgCanceled           = "Sign-in was canceled"
	MsgWalletTimeout      = "Timed out waiting for the wallet"
	MsgExchangeTimeout    = "Timed out waiting for the identity service"
	MsgNoSessionReturned  = "No session returned from identity service"
	msgNoEthereumProvider = "No wallet provider available"
	msgNoSolanaProvider   = "No Solana wallet provider available"
	msgNoAccounts         = "No accounts returned from wallet"
	msgNoPublicKey        = "No public key returned from wallet"
)

// Error is the single shape every dispatch failure is normalized to. Message is meant to be
// shown to the user as is.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether re-invoking the whole dispatch may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindUserRejected, KindNoProvider, KindUnsupported:
		return false
	}
	return true
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// KindOf returns the failure kind of err, "" when err is not a dispatch error.
func KindOf(err error) Kind {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return ""
}

func noProvider(kind chain.Kind) *Error {
	if kind == chain.Solana {
		return newError(KindNoProvider, msgNoSolanaProvider, nil)
	}
	return newError(KindNoProvider, msgNoEthereumProvider, nil)
}

func noAccounts(kind chain.Kind) *Error {
	if kind == chain.Solana {
		return newError(KindNoAccounts, msgNoPublicKey, nil)
	}
	return newError(KindNoAccounts, msgNoAccounts, nil)
}

func classifyConnect(kind chain.Kind, err error) *Error {
	switch {
	case provider.IsUserRejected(err):
		return newError(KindUserRejected, MsgUserRejected, err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindCanceled, MsgWalletTimeout, err)
	case errors.Is(err, context.Canceled):
		return newError(KindCanceled, MsgCanceled, err)
	}
	if kind == chain.Solana {
		return newError(KindProviderFault, fmt.Sprintf("Failed to connect Solana wallet: %s", provider.MessageOf(err)), err)
	}
	return newError(KindProviderFault, fmt.Sprintf("Failed to connect wallet: %s", provider.MessageOf(err)), err)
}

func classifyExchange(err error) *Error {
	switch {
	case provider.IsUserRejected(err):
		return newError(KindUserRejected, MsgSignatureRejected, err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindCanceled, MsgExchangeTimeout, err)
	case errors.Is(err, context.Canceled):
		return newError(KindCanceled, MsgCanceled, err)
	}
	return newError(KindExchangeFault, provider.MessageOf(err), err)
}
