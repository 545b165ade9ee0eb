// Package stream fans pipeline events out to feed subscribers. Each channel
// keeps a bounded replay log with monotonically increasing positions so a
// client that reconnects with the last position it processed resumes exactly
// where it left off, or is told its window is gone.
package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeFeedUpdate  = "feed_update"
	EventTypeStoryUpdate = "story_update"
	EventTypeHeartbeat   = "heartbeat"
)

const (
	// DefaultRetention is how many events a channel replays after that many
	// newer publishes.
	DefaultRetention = 1000
	// DefaultHeartbeatInterval paces keepalives on idle channels.
	DefaultHeartbeatInterval = 15 * time.Second

	subscriberBuffer = 64
)

// Event is one delivery on a channel. Positions are per-channel and strictly
// increasing; heartbeats carry the current head position without advancing it.
type Event struct {
	Position uint64    `json:"position"`
	Type     string    `json:"type"`
	Channel  string    `json:"channel"`
	Data     any       `json:"data,omitempty"`
	Time     time.Time `json:"time"`
}

type subscriber struct {
	id uuid.UUID
	ch chan Event
}

type channelLog struct {
	events        []Event
	nextPos       uint64
	prunedThrough uint64 // highest position dropped from the log
	lastPublish   time.Time
	subs          map[*subscriber]struct{}
}

// Subscription is a live event feed. Read C until it closes; a closed
// channel means the subscriber fell too far behind or the bus shut down, and
// the client should reconnect with its last processed position.
type Subscription struct {
	ID uuid.UUID
	C  <-chan Event
	// ResetRequired is true when the requested resume position predates the
	// retained window: the replay is incomplete and the client must treat
	// its local state as a full refresh point.
	ResetRequired bool

	close func()
	once  sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(s.close)
}

type Bus struct {
	mu       sync.Mutex
	channels map[string]*channelLog

	retention  int
	hbInterval time.Duration
	now        func() time.Time
}

type BusOption func(*Bus)

func WithRetention(n int) BusOption {
	return func(b *Bus) { b.retention = n }
}

func WithHeartbeatInterval(d time.Duration) BusOption {
	return func(b *Bus) { b.hbInterval = d }
}

func WithBusClock(now func() time.Time) BusOption {
	return func(b *Bus) { b.now = now }
}

func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		channels:   make(map[string]*channelLog),
		retention:  DefaultRetention,
		hbInterval: DefaultHeartbeatInterval,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) channel(name string) *channelLog {
	cl, ok := b.channels[name]
	if !ok {
		cl = &channelLog{
			nextPos: 1,
			subs:    make(map[*subscriber]struct{}),
		}
		b.channels[name] = cl
	}
	return cl
}

// Publish appends the event, prunes past retention and delivers to every
// live subscriber. A subscriber whose buffer is full is dropped; it resumes
// by position on reconnect instead of stalling the channel.
func (b *Bus) Publish(channelName, eventType string, data any) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	cl := b.channel(channelName)
	event := Event{
		Position: cl.nextPos,
		Type:     eventType,
		Channel:  channelName,
		Data:     data,
		Time:     b.now().UTC(),
	}
	cl.nextPos++
	cl.lastPublish = event.Time

	cl.events = append(cl.events, event)
	if len(cl.events) > b.retention {
		drop := len(cl.events) - b.retention
		cl.prunedThrough = cl.events[drop-1].Position
		cl.events = append([]Event(nil), cl.events[drop:]...)
	}

	b.deliverLocked(cl, event)
	return event
}

func (b *Bus) deliverLocked(cl *channelLog, event Event) {
	for sub := range cl.subs {
		select {
		case sub.ch <- event:
		default:
			delete(cl.subs, sub)
			close(sub.ch)
			slog.Warn("Dropped slow stream subscriber", "subscriber", sub.id, "channel", event.Channel)
		}
	}
}

// Subscribe replays every retained event with position > from, then delivers
// live. from = 0 requests replay of the whole retained window.
func (b *Bus) Subscribe(ctx context.Context, channelName string, from uint64) *Subscription {
	b.mu.Lock()
	cl := b.channel(channelName)

	var replay []Event
	for _, e := range cl.events {
		if e.Position > from {
			replay = append(replay, e)
		}
	}

	sub := &subscriber{
		id: uuid.New(),
		ch: make(chan Event, len(replay)+subscriberBuffer),
	}
	for _, e := range replay {
		sub.ch <- e
	}
	cl.subs[sub] = struct{}{}
	resetRequired := from < cl.prunedThrough
	b.mu.Unlock()

	s := &Subscription{
		ID:            sub.id,
		C:             sub.ch,
		ResetRequired: resetRequired,
		close: func() {
			b.mu.Lock()
			if _, live := cl.subs[sub]; live {
				delete(cl.subs, sub)
				close(sub.ch)
			}
			b.mu.Unlock()
		},
	}

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	return s
}

// Run emits heartbeats on subscribed channels that have been idle for a full
// interval, so clients can tell "no news" from a dead connection. Blocks
// until the context ends.
func (b *Bus) Run(ctx context.Context) {
	ticker := time.NewTicker(b.hbInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.heartbeat()
		}
	}
}

func (b *Bus) heartbeat() {
	now := b.now().UTC()

	b.mu.Lock()
	defer b.mu.Unlock()
	for name, cl := range b.channels {
		if len(cl.subs) == 0 || now.Sub(cl.lastPublish) < b.hbInterval {
			continue
		}
		b.deliverLocked(cl, Event{
			Position: cl.nextPos - 1,
			Type:     EventTypeHeartbeat,
			Channel:  name,
			Time:     now,
		})
	}
}

// Head reports the last assigned position on a channel, 0 when nothing has
// been published yet.
func (b *Bus) Head(channelName string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	cl, ok := b.channels[channelName]
	if !ok {
		return 0
	}
	return cl.nextPos - 1
}
