package commands

import (
	"context"

	"moff.io/walletauth/internal/auth"
	"moff.io/walletauth/internal/cache"
	"moff.io/walletauth/internal/config"
	"moff.io/walletauth/internal/databus"
	"moff.io/walletauth/internal/exchange"
	"moff.io/walletauth/internal/host"
	"moff.io/walletauth/internal/identity"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
)

// App is the wired component graph shared by the commands.
type App struct {
	Config     *config.Configuration
	Host       *host.Host
	Issuer     *identity.Issuer
	Dispatcher *auth.Dispatcher

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Configuration) (*App, error) {
	if err := errors.NewSentryReporter(cfg.Reporters.SentryDSN, cfg.Reporters.Environment); err != nil {
		return nil, err
	}
	errors.NewLarkReporter(cfg.Reporters.LarkAlarmWebhook, "walletauth alarm", cfg.Reporters.LarkSilentSeconds)

	app := &App{Config: cfg}
	if err := cache.Init(&cfg.RedisCredential); err != nil {
		return nil, err
	}
	app.closers = append(app.closers, cache.Close)

	var publisher databus.Publisher = databus.LogPublisher{}
	if cfg.KafkaServer != "" {
		bus, err := databus.NewDataBus(cfg.KafkaServer)
		if err != nil {
			app.Close()
			return nil, err
		}
		publisher = bus
		app.closers = append(app.closers, func() { bus.Close() })
	}

	signer := exchange.NewSigner(cfg.Exchange.Domain, cfg.Exchange.URI, cfg.Exchange.MessageTTL)
	if cfg.Issuer.Enabled {
		var guard identity.ReplayGuard
		if cache.Enabled() {
			guard = cache.NewReplayGuard(cache.Redis)
		}
		app.Issuer = identity.NewIssuer(identity.Config{
			Secret:        []byte(cfg.Issuer.Secret),
			Issuer:        cfg.Issuer.Name,
			Domain:        cfg.Exchange.Domain,
			SolanaNetwork: cfg.Issuer.SolanaNetwork,
			TokenTTL:      cfg.Issuer.TokenTTL,
			MaxAge:        cfg.Issuer.MaxAge,
		}, guard)
	}

	var exchanger exchange.Exchanger
	if cfg.Exchange.BaseURL != "" {
		exchanger = exchange.NewClient(exchange.ClientConfig{
			BaseURL:    cfg.Exchange.BaseURL,
			APIKey:     cfg.Exchange.APIKey,
			Domain:     cfg.Exchange.Domain,
			URI:        cfg.Exchange.URI,
			MessageTTL: cfg.Exchange.MessageTTL,
			Timeout:    cfg.Exchange.Timeout,
		})
	} else {
		exchanger = identity.NewLocal(signer, app.Issuer)
	}

	app.Dispatcher = auth.NewDispatcher(exchanger,
		auth.WithTimeouts(cfg.Dispatch.ConnectTimeout, cfg.Dispatch.ExchangeTimeout),
		auth.WithPublisher(publisher, cfg.AuditTopic),
		auth.WithObserver(func(state auth.State, err *auth.Error) {
			if err != nil {
				log.Infof("sign-in %v: %v", state, err.Message)
				return
			}
			log.Debugf("sign-in %v", state)
		}),
	)

	h, err := host.Build(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Host = h
	app.closers = append(app.closers, h.Close)
	return app, nil
}

// TokenSecret is the secret bearer tokens are verified with, nil when sessions come from a remote service.
func (a *App) TokenSecret() []byte {
	if a.Issuer == nil || a.Config.Exchange.BaseURL != "" {
		return nil
	}
	return []byte(a.Config.Issuer.Secret)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
