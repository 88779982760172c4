// Package auth drives a wallet through the sign-in handshake: connect, then exchange a signed
// proof for a session.
package auth

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/atomic"
	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/databus"
	"moff.io/walletauth/internal/exchange"
	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/pkg/log"
	"moff.io/walletauth/pkg/log/meta"
)

// State of the handshake.
type State int32

const (
	Idle State = iota
	Connecting
	Challenging
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Challenging:
		return "challenging"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

const (
	DefaultConnectTimeout  = 2 * time.Minute
	DefaultExchangeTimeout = 30 * time.Second
)

// Observer is told about every state change. err is set on Failed only.
type Observer func(state State, err *Error)

type Option func(*Dispatcher)

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

// WithTimeouts bounds the connect and exchange steps, zero keeps the default.
func WithTimeouts(connect, exchange time.Duration) Option {
	return func(d *Dispatcher) {
		if connect > 0 {
			d.connectTimeout = connect
		}
		if exchange > 0 {
			d.exchangeTimeout = exchange
		}
	}
}

// WithPublisher publishes an Outcome for every settled dispatch.
func WithPublisher(p databus.Publisher, topic string) Option {
	return func(d *Dispatcher) {
		d.publisher = p
		if topic != "" {
			d.topic = topic
		}
	}
}

// Dispatcher runs one handshake at a time. A dispatch issued while another is in flight fails
// with KindBusy instead of queueing.
type Dispatcher struct {
	exchanger       exchange.Exchanger
	observers       []Observer
	connectTimeout  time.Duration
	exchangeTimeout time.Duration
	publisher       databus.Publisher
	topic           string

	inFlight atomic.Bool
	state    atomic.Int32
}

func NewDispatcher(ex exchange.Exchanger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		exchanger:       ex,
		connectTimeout:  DefaultConnectTimeout,
		exchangeTimeout: DefaultExchangeTimeout,
		topic:           DefaultOutcomeTopic,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the state of the current or last dispatch.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Dispatch connects p on chain kind and exchanges a proof for a session. Every failure is an *Error.
func (d *Dispatcher) Dispatch(ctx context.Context, kind chain.Kind, p provider.Provider, statement string) (*exchange.Session, error) {
	if !d.inFlight.CAS(false, true) {
		log.Warnf("auth dispatcher - %v rejected, another sign-in in flight", meta.RequestID(ctx))
		return nil, newError(KindBusy, MsgBusy, nil)
	}
	defer d.inFlight.Store(false)
	if statement == "" {
		statement = exchange.DefaultStatement
	}

	started := time.Now()
	address, session, aerr := d.run(ctx, kind, p, statement)
	d.publish(ctx, newOutcome(kind, p, address, started, aerr))
	if aerr != nil {
		d.transition(ctx, Failed, aerr)
		return nil, aerr
	}
	d.transition(ctx, Succeeded, nil)
	return session, nil
}

func (d *Dispatcher) run(ctx context.Context, kind chain.Kind, p provider.Provider, statement string) (string, *exchange.Session, *Error) {
	d.transition(ctx, Idle, nil)
	if !kind.Valid() {
		return "", nil, newError(KindUnsupported, MsgUnsupported, nil)
	}
	if missing(p) {
		return "", nil, noProvider(kind)
	}

	d.transition(ctx, Connecting, nil)
	address, aerr := d.connect(ctx, kind, p)
	if aerr != nil {
		return "", nil, aerr
	}

	d.transition(ctx, Challenging, nil)
	session, aerr := d.exchange(ctx, kind, p, statement)
	return address, session, aerr
}

func (d *Dispatcher) connect(ctx context.Context, kind chain.Kind, p provider.Provider) (string, *Error) {
	cctx, cancel := context.WithTimeout(ctx, d.connectTimeout)
	defer cancel()
	switch kind {
	case chain.Ethereum:
		eth, ok := p.(provider.Ethereum)
		if !ok {
			return "", newError(KindUnsupported, MsgUnsupported, nil)
		}
		accounts, err := await(cctx, func(ctx context.Context) ([]string, error) {
			return provider.RequestAccounts(ctx, eth)
		})
		if err != nil {
			return "", classifyConnect(kind, err)
		}
		if len(accounts) == 0 {
			return "", noAccounts(kind)
		}
		return accounts[0], nil
	case chain.Solana:
		sol, ok := p.(provider.Solana)
		if !ok {
			return "", newError(KindUnsupported, MsgUnsupported, nil)
		}
		key, err := await(cctx, sol.Connect)
		if err != nil {
			return "", classifyConnect(kind, err)
		}
		if key.IsZero() {
			return "", noAccounts(kind)
		}
		return key.String(), nil
	}
	return "", newError(KindUnsupported, MsgUnsupported, nil)
}

func (d *Dispatcher) exchange(ctx context.Context, kind chain.Kind, p provider.Provider, statement string) (*exchange.Session, *Error) {
	ectx, cancel := context.WithTimeout(ctx, d.exchangeTimeout)
	defer cancel()
	resp, err := await(ectx, func(ctx context.Context) (*exchange.Response, error) {
		return d.exchanger.Exchange(ctx, exchange.Request{Chain: kind, Statement: statement, Provider: p})
	})
	if err != nil {
		return nil, classifyExchange(err)
	}
	if resp == nil {
		return nil, newError(KindExchangeFault, MsgNoSessionReturned, nil)
	}
	if resp.Error != nil {
		return nil, newError(KindExchangeFault, resp.Error.Message, resp.Error)
	}
	if resp.Session == nil {
		return nil, newError(KindExchangeFault, MsgNoSessionReturned, nil)
	}
	return resp.Session, nil
}

func (d *Dispatcher) transition(ctx context.Context, s State, err *Error) {
	d.state.Store(int32(s))
	if err != nil {
		log.Infof("auth dispatcher - %v %v: %v (%v)", meta.RequestID(ctx), s, err.Message, err.Kind)
	} else {
		log.Debugf("auth dispatcher - %v %v", meta.RequestID(ctx), s)
	}
	for _, o := range d.observers {
		o(s, err)
	}
}

func (d *Dispatcher) publish(ctx context.Context, o *Outcome) {
	if d.publisher == nil {
		return
	}
	o.RequestID = meta.RequestID(ctx)
	o.topic = d.topic
	if err := d.publisher.Publish(o); err != nil {
		log.Warnf("auth dispatcher - publish outcome:%v", err)
	}
}

// await runs fn but stops waiting once ctx ends, wallets do not always honour cancellation.
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r.err = provider.NewError(provider.CodeInternal, "wallet panicked")
				log.Errorf("auth dispatcher - wallet panicked:%v", p)
			}
			done <- r
		}()
		r.v, r.err = fn(ctx)
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// missing also catches typed nil pointers stored in the interface.
func missing(p provider.Provider) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
