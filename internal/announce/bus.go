// Package announce implements the wallet announcement channel: a requester broadcasts a
// request signal and wallets answer, asynchronously, with an announcement each.
package announce

import (
	"sync"
	"time"

	"moff.io/walletauth/internal/provider"
)

// Event names of the announcement protocol.
const (
	RequestEvent  = "eip6963:requestProvider"
	AnnounceEvent = "eip6963:announceProvider"
)

// Info is the wallet metadata carried by an announcement.
type Info struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Icon string `json:"icon"`
	RDNS string `json:"rdns"`
}

// Announcement is one wallet's answer to a request.
type Announcement struct {
	Info     Info
	Provider provider.Ethereum
}

// Bus is the announcement channel as seen by the requester.
type Bus interface {
	// Subscribe registers fn for announcements until the returned function is called.
	// fn may run on any goroutine.
	Subscribe(fn func(Announcement)) (unsubscribe func())
	// Request broadcasts the request signal.
	Request() error
}

// Clock abstracts the grace window timer.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// SystemClock waits on wall-clock time.
type SystemClock struct{}

func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

type listener struct {
	id int
	fn func(Announcement)
}

// listeners keeps subscribers in subscription order.
type listeners struct {
	mu     sync.Mutex
	nextID int
	items  []listener
}

func (l *listeners) add(fn func(Announcement)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.items = append(l.items, listener{id: id, fn: fn})
	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, item := range l.items {
		if item.id == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return
		}
	}
}

func (l *listeners) notify(a Announcement) {
	l.mu.Lock()
	snapshot := make([]listener, len(l.items))
	copy(snapshot, l.items)
	l.mu.Unlock()
	for _, item := range snapshot {
		item.fn(a)
	}
}

func (l *listeners) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
