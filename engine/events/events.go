// Package events implements named, typed broadcast channels. Raising a
// value on a channel invokes every subscribed listener synchronously;
// a fault in one listener never stops the rest of the dispatch.
package events

import (
	"log/slog"

	"github.com/nathoo/questweave/types"
)

// Listener receives the payload of a raised event.
type Listener func(p types.Payload)

// Subscription is a handle for removing a listener. Cancel is idempotent
// and safe to call from inside a dispatch.
type Subscription struct {
	ch *Channel
	fn Listener
	id int
}

// Cancel removes the listener from its channel. A second call is a no-op.
func (s *Subscription) Cancel() {
	if s == nil || s.ch == nil {
		return
	}
	s.ch.remove(s.id)
	s.ch = nil
}

type entry struct {
	id int
	fn Listener
}

// Channel is a named broadcast primitive with a declared payload kind.
type Channel struct {
	name    string
	kind    types.PayloadKind
	entries []entry
	nextID  int
	log     *slog.Logger
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Kind returns the declared payload kind.
func (c *Channel) Kind() types.PayloadKind { return c.kind }

// Subscribe registers a listener and returns its cancellation handle.
func (c *Channel) Subscribe(fn Listener) *Subscription {
	c.nextID++
	c.entries = append(c.entries, entry{id: c.nextID, fn: fn})
	return &Subscription{ch: c, fn: fn, id: c.nextID}
}

func (c *Channel) remove(id int) {
	for i := range c.entries {
		if c.entries[i].id == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

// Raise invokes every listener with the payload. Listeners are walked over
// a snapshot of the subscription list, so a listener may cancel itself (or
// others) mid-dispatch without corrupting the walk. A panic inside one
// listener is recovered and logged; the remaining listeners still run.
func (c *Channel) Raise(p types.Payload) {
	snapshot := make([]entry, len(c.entries))
	copy(snapshot, c.entries)

	for _, e := range snapshot {
		c.invoke(e, p)
	}
}

func (c *Channel) invoke(e entry, p types.Payload) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("event listener panicked",
				"channel", c.name, "panic", r)
		}
	}()
	e.fn(p)
}

// ListenerCount returns the number of active subscriptions.
func (c *Channel) ListenerCount() int { return len(c.entries) }

// Bus holds the process-wide set of channels keyed by name.
type Bus struct {
	channels map[string]*Channel
	log      *slog.Logger
}

// NewBus creates an empty bus. A nil logger means slog.Default().
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{channels: map[string]*Channel{}, log: log}
}

// Declare registers a channel with its payload kind, or returns the
// existing channel of that name. A kind mismatch on an existing channel
// is logged and the original kind kept.
func (b *Bus) Declare(name string, kind types.PayloadKind) *Channel {
	if ch, ok := b.channels[name]; ok {
		if ch.kind != kind {
			b.log.Warn("channel redeclared with different payload kind",
				"channel", name, "declared", ch.kind, "requested", kind)
		}
		return ch
	}
	ch := &Channel{name: name, kind: kind, log: b.log}
	b.channels[name] = ch
	return ch
}

// Lookup returns the channel of the given name, or nil.
func (b *Bus) Lookup(name string) *Channel {
	return b.channels[name]
}

// Raise dispatches a payload on the named channel. Raising on an
// undeclared channel is logged and dropped rather than treated as fatal.
func (b *Bus) Raise(name string, p types.Payload) {
	ch, ok := b.channels[name]
	if !ok {
		b.log.Warn("raise on undeclared channel", "channel", name)
		return
	}
	if ch.kind != p.Kind {
		b.log.Warn("payload kind mismatch",
			"channel", name, "declared", ch.kind, "got", p.Kind)
		return
	}
	ch.Raise(p)
}
