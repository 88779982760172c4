package starter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"moff.io/walletauth/internal/config"
)

type recorder struct {
	name  string
	calls *[]string
}

func (r *recorder) Start(context.Context) {
	*r.calls = append(*r.calls, "start "+r.name)
}

type configurable struct {
	recorder
	addr string
}

func (c *configurable) Apply(cfg *config.Configuration) {
	c.addr = cfg.HTTP.Address
	*c.calls = append(*c.calls, "apply "+c.name)
}

func (c *configurable) Stop() {
	*c.calls = append(*c.calls, "stop "+c.name)
}

func TestStartAppliesConfigInOrder(t *testing.T) {
	var calls []string
	a := &configurable{recorder: recorder{name: "a", calls: &calls}}
	b := &recorder{name: "b", calls: &calls}

	Start(context.Background(), &config.Configuration{HTTP: config.HTTP{Address: ":9000"}}, a, b)
	Stop(a, b)

	assert.Equal(t, ":9000", a.addr)
	assert.Equal(t, []string{"apply a", "start a", "start b", "stop a"}, calls)
}
