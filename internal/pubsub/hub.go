package pubsub

import (
	"sync"

	"github.com/eternalApril/redismock/internal/resp"
	"go.uber.org/zap"
)

// Hub owns the channel -> subscribers relation and delivers published messages
type Hub struct {
	channels map[string]map[Subscriber]struct{}
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewHub creates an empty Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		channels: make(map[string]map[Subscriber]struct{}),
		logger:   logger,
	}
}

// Subscribe adds sub to channel. Subscribing twice is a no-op.
// Returns the number of channels sub listens to after the change
func (h *Hub) Subscribe(sub Subscriber, channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[Subscriber]struct{})
		h.channels[channel] = subs
	}
	subs[sub] = struct{}{}

	return sub.Membership().add(channel)
}

// Unsubscribe removes sub from channel and drops the channel once nobody listens to it.
// Returns the number of channels sub still listens to
func (h *Hub) Unsubscribe(sub Subscriber, channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.detach(sub, channel)
	return sub.Membership().remove(channel)
}

// UnsubscribeAll removes every subscription of sub and returns the channels it left
func (h *Hub) UnsubscribeAll(sub Subscriber) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	m := sub.Membership()
	channels := m.Channels()
	for _, channel := range channels {
		h.detach(sub, channel)
		m.remove(channel)
	}

	return channels
}

// detach removes the channel side of the relation. Caller must hold the write lock
func (h *Hub) detach(sub Subscriber, channel string) {
	subs, ok := h.channels[channel]
	if !ok {
		return
	}

	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.channels, channel)
	}
}

// Publish hands ["message", channel, message] to every current subscriber of channel
// and returns how many subscribers it was handed to. Delivery to the network happens later,
// on each subscriber's own transport
func (h *Hub) Publish(channel, message string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.channels[channel]
	if len(subs) == 0 {
		return 0
	}

	frame := resp.MakeArray([]resp.Value{
		resp.MakeBulkString("message"),
		resp.MakeBulkString(channel),
		resp.MakeBulkString(message),
	})

	for sub := range subs {
		if err := sub.Send(frame); err != nil {
			h.logger.Warn("pubsub delivery failed", zap.String("channel", channel), zap.Error(err))
		}
	}

	return len(subs)
}

// Channels returns the number of channels with at least one subscriber
func (h *Hub) Channels() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// Clients returns the number of distinct subscribers across all channels
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[Subscriber]struct{})
	for _, subs := range h.channels {
		for sub := range subs {
			seen[sub] = struct{}{}
		}
	}
	return len(seen)
}

// NumSubscribers returns the number of subscribers of channel
func (h *Hub) NumSubscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}
