package provider

import (
	"fmt"

	"moff.io/walletauth/pkg/errors"
)

// Provider error codes shared by EIP-1193 providers and Solana wallets.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeInternal          = -32603
)

// Error is the error shape providers reject with.
type Error struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// NewError builds a provider error.
func NewError(code int, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// ErrUserRejected is what wallets return when the user dismisses a prompt.
var ErrUserRejected = NewError(CodeUserRejected, "User rejected the request.")

// CodeOf returns the provider error code carried by err, or 0.
func CodeOf(err error) int {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return 0
}

// IsUserRejected reports whether err carries the user cancellation code.
func IsUserRejected(err error) bool {
	return CodeOf(err) == CodeUserRejected
}

// MessageOf returns the provider message of err without the code suffix.
func MessageOf(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
