package pubsub

import (
	"sync"

	"github.com/eternalApril/redismock/internal/resp"
	"github.com/samber/lo"
)

// Subscriber is anything that can receive published frames and track its own channels.
// The Hub never needs to know the concrete transport behind it
type Subscriber interface {
	// Send hands a frame to the subscriber's transport. It is called under the Hub lock
	// and must not wait on the network
	Send(v resp.Value) error

	// Membership returns the subscriber's own record of the channels it listens to
	Membership() *Membership
}

// Membership is the subscriber-side half of the channel index.
// It lets the Hub clean up a subscriber without scanning every channel
type Membership struct {
	channels map[string]struct{}
	mu       sync.Mutex
}

// NewMembership creates an empty Membership
func NewMembership() *Membership {
	return &Membership{channels: make(map[string]struct{})}
}

func (m *Membership) add(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[channel] = struct{}{}
	return len(m.channels)
}

func (m *Membership) remove(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, channel)
	return len(m.channels)
}

// Channels returns the subscribed channel names in no particular order
func (m *Membership) Channels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Keys(m.channels)
}

// Count returns the number of subscribed channels
func (m *Membership) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}
