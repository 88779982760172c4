package announce

import "sync"

// MemoryBus is an in-process announcement channel. Registered wallets answer every request
// synchronously, in registration order, the way injected wallets answer a dispatched event.
type MemoryBus struct {
	listeners listeners

	mu      sync.Mutex
	wallets []Announcement
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Register adds a wallet that announces itself on every request.
func (b *MemoryBus) Register(a Announcement) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wallets = append(b.wallets, a)
}

func (b *MemoryBus) Subscribe(fn func(Announcement)) func() {
	return b.listeners.add(fn)
}

func (b *MemoryBus) Request() error {
	b.mu.Lock()
	wallets := make([]Announcement, len(b.wallets))
	copy(wallets, b.wallets)
	b.mu.Unlock()
	for _, a := range wallets {
		b.listeners.notify(a)
	}
	return nil
}

// Broadcast delivers an unsolicited announcement to the current subscribers.
func (b *MemoryBus) Broadcast(a Announcement) {
	b.listeners.notify(a)
}

// Subscribers reports the number of live subscriptions.
func (b *MemoryBus) Subscribers() int {
	return b.listeners.len()
}

type multiBus []Bus

// Multi fans a request out to every bus and merges their announcements.
func Multi(buses ...Bus) Bus {
	if len(buses) == 1 {
		return buses[0]
	}
	return multiBus(buses)
}

func (m multiBus) Subscribe(fn func(Announcement)) func() {
	unsubs := make([]func(), 0, len(m))
	for _, b := range m {
		unsubs = append(unsubs, b.Subscribe(fn))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Request returns the first error, after all buses were asked.
func (m multiBus) Request() error {
	var first error
	for _, b := range m {
		if err := b.Request(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
