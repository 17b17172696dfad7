package persistence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SINHASantos/csml-engine/pkg/domain"
)

// fakeClock advances only through Sleep.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
}

// maxRand always yields the upper bound minus one, making jitter
// deterministic and maximal.
type maxRand struct{}

func (maxRand) Int63n(n int64) int64 { return n - 1 }

// zeroRand removes jitter entirely.
type zeroRand struct{}

func (zeroRand) Int63n(n int64) int64 { return 0 }

func TestRetrySucceedsAfterCapacityErrors(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := NewRetrier(WithClock(clock), WithRand(zeroRand{}))

	calls := 0
	err := r.Do(func() error {
		calls++
		if calls < 4 {
			return domain.ErrCapacityExceeded
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Len(t, clock.slept, 3)
}

// recordingRand captures each jitter bound and returns zero, so the clock
// never advances and the ceiling never interferes.
type recordingRand struct {
	bounds []int64
}

func (r *recordingRand) Int63n(n int64) int64 {
	r.bounds = append(r.bounds, n)
	return 0
}

func TestRetryIntervalGrowsAndCaps(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rnd := &recordingRand{}
	r := NewRetrier(WithClock(clock), WithRand(rnd))

	calls := 0
	err := r.Do(func() error {
		calls++
		if calls <= 70 {
			return domain.ErrCapacityExceeded
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, rnd.bounds, 70)
	// attempt n backs off within [0, 500ms*2*n) until the 60s cap.
	assert.Equal(t, int64(time.Second), rnd.bounds[0])
	assert.Equal(t, int64(2*time.Second), rnd.bounds[1])
	assert.Equal(t, int64(3*time.Second), rnd.bounds[2])
	assert.Equal(t, int64(59*time.Second), rnd.bounds[58])
	assert.Equal(t, int64(MaxIntervalLimit), rnd.bounds[59])
	assert.Equal(t, int64(MaxIntervalLimit), rnd.bounds[69])
}

func TestRetryStopsAtElapsedCeiling(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	exhausted := false
	var attempts []int64
	r := NewRetrier(
		WithClock(clock),
		WithRand(maxRand{}),
		WithRetryHooks(
			func(attempt int64) { attempts = append(attempts, attempt) },
			func() { exhausted = true },
		),
	)

	err := r.Do(func() error {
		return domain.ErrCapacityExceeded
	})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.True(t, exhausted)
	assert.NotEmpty(t, attempts)
	assert.GreaterOrEqual(t, clock.now.Sub(time.Unix(0, 0)), MaxElapsedTime)
}

func TestRetryCeilingCheckedAfterSleep(t *testing.T) {
	// Time jumps straight past the ceiling during the first backoff: the
	// retrier must give up without invoking the operation again.
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := NewRetrier(WithClock(clock), WithRand(zeroRand{}))

	calls := 0
	err := r.Do(func() error {
		calls++
		clock.now = clock.now.Add(MaxElapsedTime)
		return domain.ErrCapacityExceeded
	})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Equal(t, 1, calls)
}

func TestRetryNonCapacityErrorIsImmediate(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := NewRetrier(WithClock(clock), WithRand(zeroRand{}))

	boom := errors.New("boom")
	calls := 0
	err := r.Do(func() error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clock.slept)
}

func TestRetryWrappedCapacityErrorIsRetried(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := NewRetrier(WithClock(clock), WithRand(zeroRand{}))

	calls := 0
	err := r.Do(func() error {
		calls++
		if calls == 1 {
			return errors.Join(errors.New("write items"), domain.ErrCapacityExceeded)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
