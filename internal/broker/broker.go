// Package broker provides in-process pub/sub channels used to fan out
// indexer events to websocket subscribers.
package broker

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Message is the envelope delivered to subscribers and serialized on
// the websocket wire.
type Message struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// Subscription is a single consumer's view of the broker. Channels are
// added and removed per subscription; all deliveries share one buffered
// outbox.
type Subscription struct {
	broker   *Broker
	out      chan Message
	mu       sync.Mutex
	channels map[string]struct{}
	closed   bool
}

// Broker routes published messages to every subscription attached to
// the message's channel. Publish never blocks; slow subscribers drop
// messages.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	logger *zap.Logger

	dropped atomic.Uint64
}

const subscriptionBuffer = 64

func New(logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		subs:   make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe creates an empty subscription. Callers add channels with
// Add and must Close the subscription when done.
func (b *Broker) Subscribe() *Subscription {
	return &Subscription{
		broker:   b,
		out:      make(chan Message, subscriptionBuffer),
		channels: make(map[string]struct{}),
	}
}

// Publish delivers msg to every subscription of the channel. Delivery
// is best effort: a subscription with a full outbox misses the message.
func (b *Broker) Publish(channel string, data any) {
	msg := Message{Channel: channel, Data: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[channel] {
		select {
		case sub.out <- msg:
		default:
			b.dropped.Add(1)
			b.logger.Debug("dropping message for slow subscriber", zap.String("channel", channel))
		}
	}
}

// Dropped reports how many messages were discarded because a
// subscriber's outbox was full.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// SubscriberCount reports how many subscriptions are attached to a
// channel.
func (b *Broker) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

func (b *Broker) attach(channel string, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[channel]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[channel] = set
	}
	set[sub] = struct{}{}
}

func (b *Broker) detach(channel string, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[channel]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, channel)
	}
}

// C returns the subscription's delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan Message {
	return s.out
}

// Add attaches the subscription to a channel. Adding a channel twice is
// a no-op.
func (s *Subscription) Add(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.channels[channel]; ok {
		return
	}
	s.channels[channel] = struct{}{}
	s.broker.attach(channel, s)
}

// Remove detaches the subscription from a channel.
func (s *Subscription) Remove(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channel]; !ok {
		return
	}
	delete(s.channels, channel)
	s.broker.detach(channel, s)
}

// Channels returns the channels currently attached, in no particular
// order.
func (s *Subscription) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	return out
}

// Close detaches every channel and closes the delivery channel. Close
// is idempotent.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	channels := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		channels = append(channels, ch)
	}
	s.channels = map[string]struct{}{}
	s.mu.Unlock()

	for _, ch := range channels {
		s.broker.detach(ch, s)
	}
	close(s.out)
}
