package provider

import "context"

// Approver stands in for the wallet's consent prompt. Returning an error, typically
// ErrUserRejected, rejects the pending method.
type Approver func(ctx context.Context, method string) error

// AutoApprove approves every prompt.
func AutoApprove(context.Context, string) error {
	return nil
}

// RejectAll rejects every prompt as the user would by closing the popup.
func RejectAll(context.Context, string) error {
	return ErrUserRejected
}

type keyedOptions struct {
	id      string
	approve Approver
	flags   Flags
}

// KeyedOption configures a key-backed provider.
type KeyedOption func(*keyedOptions)

// WithID overrides the identity tag, by default derived from the public key.
func WithID(id string) KeyedOption {
	return func(o *keyedOptions) {
		o.id = id
	}
}

// WithApprover installs a consent prompt.
func WithApprover(approve Approver) KeyedOption {
	return func(o *keyedOptions) {
		if approve != nil {
			o.approve = approve
		}
	}
}

// WithFlags sets the brand flags advertised by a Solana provider.
func WithFlags(flags Flags) KeyedOption {
	return func(o *keyedOptions) {
		o.flags = flags
	}
}

func applyKeyedOptions(opts []KeyedOption) keyedOptions {
	o := keyedOptions{approve: AutoApprove}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
