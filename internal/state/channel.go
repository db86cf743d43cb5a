package state

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Channel is a named single-slot broadcast stream. It remembers the most
// recently published value and replays it to every new subscriber before
// any later value.
//
// Deliveries on one channel are serialized: a value reaches all of its
// subscribers before the next value starts. Publish and Subscribe are safe
// for concurrent use and may be called from inside a listener; such calls
// are queued behind the delivery in progress rather than recursing.
type Channel[T any] struct {
	name string

	mu         sync.Mutex
	value      T
	has        bool
	subs       []*subscriber[T]
	queue      []delivery[T]
	delivering bool
	closed     bool
}

// delivery is one queued value and the subscribers it is addressed to,
// captured when it was queued.
type delivery[T any] struct {
	value   T
	targets []*subscriber[T]
}

type subscriber[T any] struct {
	fn      func(T)
	onError func(error)
	active  atomic.Bool
}

// NewChannel creates an empty channel.
func NewChannel[T any](name string) *Channel[T] {
	return &Channel[T]{name: name}
}

// Name returns the channel name.
func (c *Channel[T]) Name() string { return c.name }

// Value returns the current value and whether one was ever published.
func (c *Channel[T]) Value() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.has
}

// Publish makes v the current value and delivers it to every subscriber in
// subscription order. Publishing on a closed channel is a no-op.
func (c *Channel[T]) Publish(v T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.value = v
	c.has = true
	if len(c.subs) > 0 {
		targets := make([]*subscriber[T], len(c.subs))
		copy(targets, c.subs)
		c.queue = append(c.queue, delivery[T]{value: v, targets: targets})
	}
	c.drainLocked()
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	onError func(error)
}

// OnError routes listener failures (panics) to fn instead of the log.
func OnError(fn func(error)) SubscribeOption {
	return func(o *subscribeOptions) { o.onError = fn }
}

// Subscribe registers fn. If the channel holds a value, fn receives it
// first; when no other delivery is in flight that happens before Subscribe
// returns.
func (c *Channel[T]) Subscribe(fn func(T), opts ...SubscribeOption) *Subscription {
	var o subscribeOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &subscriber[T]{fn: fn, onError: o.onError}
	s.active.Store(true)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		s.active.Store(false)
		return &Subscription{}
	}
	c.subs = append(c.subs, s)
	if c.has {
		c.queue = append(c.queue, delivery[T]{value: c.value, targets: []*subscriber[T]{s}})
	}
	c.drainLocked()

	return &Subscription{cancel: func() { c.remove(s) }}
}

// Subscribers returns the number of live subscriptions.
func (c *Channel[T]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Close drops every subscriber. Later publishes and subscriptions are ignored.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		s.active.Store(false)
	}
	c.subs = nil
	c.queue = nil
	c.closed = true
}

func (c *Channel[T]) remove(s *subscriber[T]) {
	s.active.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cur := range c.subs {
		if cur == s {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}

// drainLocked delivers queued values until the queue is empty. It must be
// called with c.mu held and releases it before returning. Only one goroutine
// drains at a time; others leave their work in the queue.
func (c *Channel[T]) drainLocked() {
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	for len(c.queue) > 0 {
		d := c.queue[0]
		c.queue[0] = delivery[T]{}
		c.queue = c.queue[1:]
		c.mu.Unlock()

		for _, s := range d.targets {
			c.deliver(s, d.value)
		}

		c.mu.Lock()
	}
	c.queue = nil
	c.delivering = false
	c.mu.Unlock()
}

func (c *Channel[T]) deliver(s *subscriber[T], v T) {
	if !s.active.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("channel %s: listener failed: %v", c.name, r)
			if s.onError != nil {
				s.onError(err)
				return
			}
			log.Printf("state: %v", err)
		}
	}()
	s.fn(v)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe stops delivery to this subscription. It is safe to call more
// than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}
