package starter

import (
	"context"

	"moff.io/walletauth/internal/config"
)

type Startable interface {
	Start(ctx context.Context)
}

type Configurable interface {
	Apply(*config.Configuration)
}

// Start applies cfg to configurable elements, then starts them in order.
func Start(ctx context.Context, cfg *config.Configuration, elems ...Startable) {
	for _, ele := range elems {
		if configurable, ok := ele.(Configurable); ok {
			configurable.Apply(cfg)
		}
		ele.Start(ctx)
	}
}

type Stopable interface {
	Stop()
}

// Stop stops elements in reverse start order.
func Stop(elems ...Startable) {
	for i := len(elems) - 1; i >= 0; i-- {
		if s, ok := elems[i].(Stopable); ok {
			s.Stop()
		}
	}
}
