package announce

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEthereum struct{ id string }

func (s *stubEthereum) ID() string { return s.id }

func (s *stubEthereum) Request(context.Context, string, ...interface{}) (json.RawMessage, error) {
	return json.RawMessage(`null`), nil
}

func TestMemoryBusAnswersInRegistrationOrder(t *testing.T) {
	bus := NewMemoryBus()
	bus.Register(Announcement{Info: Info{UUID: "a", Name: "Alpha"}, Provider: &stubEthereum{id: "a"}})
	bus.Register(Announcement{Info: Info{UUID: "b", Name: "Beta"}, Provider: &stubEthereum{id: "b"}})

	var got []string
	unsubscribe := bus.Subscribe(func(a Announcement) {
		got = append(got, a.Info.UUID)
	})
	require.NoError(t, bus.Request())
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, bus.Subscribers())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, bus.Subscribers())

	require.NoError(t, bus.Request())
	assert.Len(t, got, 2)
}

func TestMemoryBusBroadcastReachesOnlyLiveSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	var first, second int
	stopFirst := bus.Subscribe(func(Announcement) { first++ })
	bus.Subscribe(func(Announcement) { second++ })

	bus.Broadcast(Announcement{Info: Info{UUID: "late"}})
	stopFirst()
	bus.Broadcast(Announcement{Info: Info{UUID: "later"}})

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestListenerMayUnsubscribeWhileNotified(t *testing.T) {
	bus := NewMemoryBus()
	bus.Register(Announcement{Info: Info{UUID: "a"}})
	var calls int
	var stop func()
	stop = bus.Subscribe(func(Announcement) {
		calls++
		stop()
	})
	require.NoError(t, bus.Request())
	require.NoError(t, bus.Request())
	assert.Equal(t, 1, calls)
}

type failingRequest struct{ *MemoryBus }

func (failingRequest) Request() error {
	return assert.AnError
}

func TestMultiMergesAnnouncements(t *testing.T) {
	local := NewMemoryBus()
	local.Register(Announcement{Info: Info{UUID: "local"}})
	remote := NewMemoryBus()
	remote.Register(Announcement{Info: Info{UUID: "remote"}})

	bus := Multi(local, failingRequest{NewMemoryBus()}, remote)
	var got []string
	stop := bus.Subscribe(func(a Announcement) { got = append(got, a.Info.UUID) })
	assert.ErrorIs(t, bus.Request(), assert.AnError)
	assert.Equal(t, []string{"local", "remote"}, got)

	stop()
	assert.Equal(t, 0, local.Subscribers())
	assert.Equal(t, 0, remote.Subscribers())
	assert.Same(t, local, Multi(local))
}
