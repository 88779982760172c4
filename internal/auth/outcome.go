package auth

import (
	"time"

	"github.com/google/uuid"
	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/provider"
	"moff.io/walletauth/pkg/common"
)

const DefaultOutcomeTopic = "walletauth.signin"

// Outcome is the audit record of one settled dispatch.
type Outcome struct {
	ID         string     `json:"id"`
	RequestID  string     `json:"request_id,omitempty"`
	Chain      chain.Kind `json:"chain"`
	WalletID   string     `json:"wallet_id,omitempty"`
	Address    string     `json:"address,omitempty"`
	State      string     `json:"state"`
	Kind       Kind       `json:"kind,omitempty"`
	Message    string     `json:"message,omitempty"`
	DurationMS int64      `json:"duration_ms"`
	At         time.Time  `json:"at"`

	topic string
}

func newOutcome(kind chain.Kind, p provider.Provider, address string, started time.Time, err *Error) *Outcome {
	o := &Outcome{
		ID:         uuid.NewString(),
		Chain:      kind,
		Address:    address,
		State:      Succeeded.String(),
		DurationMS: time.Since(started).Milliseconds(),
		At:         time.Now().UTC(),
	}
	if !missing(p) {
		o.WalletID = p.ID()
	}
	if err != nil {
		o.State = Failed.String()
		o.Kind = err.Kind
		o.Message = err.Message
	}
	return o
}

func (o *Outcome) Topic() string {
	if o.topic == "" {
		return DefaultOutcomeTopic
	}
	return o.topic
}

func (o *Outcome) Serialize() []byte {
	return []byte(common.MustGetJSONString(o))
}
