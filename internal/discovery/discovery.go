// Package discovery enumerates the wallets present in a host environment, one discoverer per
// chain family.
package discovery

import (
	"context"

	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/pkg/log"
)

// Handle is one discovered wallet capability.
type Handle struct {
	Name     string            `json:"name"`
	Icon     string            `json:"icon"`
	UUID     string            `json:"uuid"`
	Provider provider.Provider `json:"-"`
}

// Discoverer runs one discovery pass. Absence of wallets is not an error: a pass that finds
// nothing returns an empty slice.
type Discoverer interface {
	Discover(ctx context.Context) []Handle
}

// DiscovererFunc adapts a function to Discoverer.
type DiscovererFunc func(ctx context.Context) []Handle

func (f DiscovererFunc) Discover(ctx context.Context) []Handle {
	return f(ctx)
}

// guard turns a panic raised by the host environment into "wallet absent".
func guard(what string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("discovery - %v faulted:%v", what, r)
			ok = false
		}
	}()
	fn()
	return true
}
