package stream

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, sub *Subscription, n int) []Event {
	t.Helper()
	var events []Event
	for range n {
		select {
		case e, ok := <-sub.C:
			require.True(t, ok, "subscription closed early")
			events = append(events, e)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d events", len(events))
		}
	}
	return events
}

func TestPublish_PositionsAreMonotonicPerChannel(t *testing.T) {
	b := NewBus()

	e1 := b.Publish("US:tech:trending", EventTypeFeedUpdate, nil)
	e2 := b.Publish("US:tech:trending", EventTypeFeedUpdate, nil)
	other := b.Publish("GLOBAL:general:latest", EventTypeFeedUpdate, nil)

	assert.Equal(t, uint64(1), e1.Position)
	assert.Equal(t, uint64(2), e2.Position)
	assert.Equal(t, uint64(1), other.Position, "positions are per channel")
	assert.Equal(t, uint64(2), b.Head("US:tech:trending"))
}

func TestSubscribe_ReplaysFromPositionThenLive(t *testing.T) {
	b := NewBus()
	for i := 1; i <= 5; i++ {
		b.Publish("US:tech:trending", EventTypeFeedUpdate, fmt.Sprintf("v%d", i))
	}

	sub := b.Subscribe(context.Background(), "US:tech:trending", 2)
	defer sub.Close()

	assert.False(t, sub.ResetRequired)
	replayed := drain(t, sub, 3)
	assert.Equal(t, uint64(3), replayed[0].Position)
	assert.Equal(t, uint64(5), replayed[2].Position)

	live := b.Publish("US:tech:trending", EventTypeFeedUpdate, "v6")
	got := drain(t, sub, 1)
	assert.Equal(t, live.Position, got[0].Position)
	assert.Equal(t, "v6", got[0].Data)
}

func TestSubscribe_ResumePastRetainedWindowSignalsReset(t *testing.T) {
	b := NewBus(WithRetention(10))
	for i := 0; i < 25; i++ {
		b.Publish("US:tech:trending", EventTypeFeedUpdate, i)
	}

	// Positions 1-15 are pruned; resuming from 3 cannot be complete.
	sub := b.Subscribe(context.Background(), "US:tech:trending", 3)
	defer sub.Close()

	assert.True(t, sub.ResetRequired)
	replayed := drain(t, sub, 10)
	assert.Equal(t, uint64(16), replayed[0].Position)
	assert.Equal(t, uint64(25), replayed[9].Position)
}

func TestSubscribe_FromHeadReplaysNothing(t *testing.T) {
	b := NewBus()
	b.Publish("US:tech:trending", EventTypeFeedUpdate, nil)

	sub := b.Subscribe(context.Background(), "US:tech:trending", b.Head("US:tech:trending"))
	defer sub.Close()

	select {
	case e := <-sub.C:
		t.Fatalf("unexpected replayed event at position %d", e.Position)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_ContextCancelClosesSubscription(t *testing.T) {
	b := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	sub := b.Subscribe(ctx, "US:tech:trending", 0)

	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.C:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestPublish_SlowSubscriberIsDroppedNotBlocked(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(context.Background(), "US:tech:trending", 0)
	defer sub.Close()

	// Never read: the buffer fills and the bus must keep publishing.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			b.Publish("US:tech:trending", EventTypeFeedUpdate, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The subscription ends in a close so the client knows to reconnect.
	drained := 0
	for range sub.C {
		drained++
	}
	assert.Equal(t, subscriberBuffer, drained)
}

func TestHeartbeat_EmittedOnIdleSubscribedChannels(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := NewBus(WithHeartbeatInterval(15*time.Second), WithBusClock(func() time.Time { return clock }))

	b.Publish("US:tech:trending", EventTypeFeedUpdate, nil)
	sub := b.Subscribe(context.Background(), "US:tech:trending", 1)
	defer sub.Close()

	idle := b.Subscribe(context.Background(), "GLOBAL:general:latest", 0)
	defer idle.Close()

	clock = clock.Add(16 * time.Second)
	b.heartbeat()

	got := drain(t, sub, 1)
	assert.Equal(t, EventTypeHeartbeat, got[0].Type)
	assert.Equal(t, uint64(1), got[0].Position, "heartbeats carry the head position without advancing it")

	fresh := drain(t, idle, 1)
	assert.Equal(t, EventTypeHeartbeat, fresh[0].Type)
	assert.Equal(t, uint64(0), fresh[0].Position)
}

func TestHeartbeat_SkipsChannelsWithoutSubscribers(t *testing.T) {
	b := NewBus()
	b.Publish("US:tech:trending", EventTypeFeedUpdate, nil)

	// Nothing to assert on delivery; this just must not panic or leak.
	b.heartbeat()
}
