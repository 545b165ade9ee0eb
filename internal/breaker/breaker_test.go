package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(t *testing.T) (*Breaker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(WithClock(clock.Now)), clock
}

func TestBreaker_OpensAfterThreeConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(t)

	for i := 0; i < 2; i++ {
		require.True(t, b.Allow())
		b.Record(false, "boom")
		assert.True(t, b.Allow(), "breaker must stay closed below the threshold")
	}

	b.Record(false, "boom")
	assert.False(t, b.Allow(), "third consecutive failure must open the circuit")
	assert.Equal(t, StateOpen, b.Status().State)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(t)

	b.Record(false, "boom")
	b.Record(false, "boom")
	b.Record(true, "")
	b.Record(false, "boom")
	b.Record(false, "boom")

	assert.True(t, b.Allow(), "non-consecutive failures must not open the circuit")
}

func TestBreaker_HalfOpenAdmitsExactlyOneTrial(t *testing.T) {
	b, clock := newTestBreaker(t)

	for i := 0; i < 3; i++ {
		b.Record(false, "down")
	}
	require.False(t, b.Allow())

	clock.Advance(DefaultCooldown)

	assert.True(t, b.Allow(), "cooldown elapsed, one trial call is admitted")
	assert.False(t, b.Allow(), "second caller must be rejected while the trial is outstanding")

	b.Record(true, "")
	assert.Equal(t, StateClosed, b.Status().State)
	assert.True(t, b.Allow())
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	b, clock := newTestBreaker(t)

	for i := 0; i < 3; i++ {
		b.Record(false, "down")
	}
	clock.Advance(DefaultCooldown)
	require.True(t, b.Allow())

	b.Record(false, "still down")

	assert.Equal(t, StateOpen, b.Status().State)
	assert.False(t, b.Allow(), "open-since must be reset by the failed trial")

	clock.Advance(DefaultCooldown)
	assert.True(t, b.Allow(), "a fresh cooldown admits another trial")
}

func TestBreaker_StatusCooldownUntil(t *testing.T) {
	b, clock := newTestBreaker(t)

	for i := 0; i < 3; i++ {
		b.Record(false, "rate limited")
	}

	st := b.Status()
	require.NotNil(t, st.CooldownUntil)
	assert.Equal(t, clock.Now().Add(DefaultCooldown), *st.CooldownUntil)
	assert.Equal(t, "rate limited", st.LastError)
}

func TestBreaker_ConcurrentRecords(t *testing.T) {
	b := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(fail bool) {
			defer wg.Done()
			b.Allow()
			b.Record(fail, "x")
		}(i%2 == 0)
	}
	wg.Wait()

	// No assertion beyond absence of races; state must be one of the three.
	st := b.Status().State
	assert.Contains(t, []State{StateClosed, StateOpen, StateHalfOpen}, st)
}

func TestRegistry_IsolatesProviderPurposePairs(t *testing.T) {
	r := NewRegistry()

	headlines := r.Get("newsapi", "headlines")
	trending := r.Get("newsapi", "trending")
	require.NotSame(t, headlines, trending)

	for i := 0; i < 3; i++ {
		headlines.Record(false, "401")
	}

	assert.False(t, r.Get("newsapi", "headlines").Allow())
	assert.True(t, r.Get("newsapi", "trending").Allow(), "purposes must trip independently")

	statuses := r.Statuses()
	assert.Equal(t, StateOpen, statuses["newsapi/headlines"].State)
	assert.Equal(t, StateClosed, statuses["newsapi/trending"].State)
}
