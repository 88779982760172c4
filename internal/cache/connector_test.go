package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"moff.io/walletauth/internal/config"
	"moff.io/walletauth/pkg/errors"
)

type setNXClient struct {
	redis.Cmdable
	keys map[string]time.Duration
	err  error
}

func (c *setNXClient) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "setnx", key, value)
	if c.err != nil {
		cmd.SetErr(c.err)
		return cmd
	}
	_, exists := c.keys[key]
	if !exists {
		c.keys[key] = ttl
	}
	cmd.SetVal(!exists)
	return cmd
}

func TestReplayGuardClaimsOnce(t *testing.T) {
	client := &setNXClient{keys: map[string]time.Duration{}}
	g := NewReplayGuard(client)

	ok, err := g.Claim(context.Background(), "app.example.com:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = g.Claim(context.Background(), "app.example.com:abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, client.keys[NonceKey("app.example.com:abc")])
}

func TestReplayGuardError(t *testing.T) {
	g := NewReplayGuard(&setNXClient{err: errors.New("connection refused")})
	ok, err := g.Claim(context.Background(), "n", time.Minute)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDisabledWithoutAddress(t *testing.T) {
	require.NoError(t, Init(&config.DBCredential{}))
	assert.False(t, Enabled())
	ok, wait := Allow(context.Background(), "127.0.0.1", 5)
	assert.True(t, ok)
	assert.Zero(t, wait)
	assert.NoError(t, FlushNonces())
	Close()
}
