package persistence

import (
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/SINHASantos/csml-engine/internal/logging"
	"github.com/SINHASantos/csml-engine/pkg/domain"
	"github.com/SINHASantos/csml-engine/pkg/ports"
)

const (
	// RetryBase is the backoff unit.
	RetryBase = 500 * time.Millisecond
	// MaxIntervalLimit caps a single backoff interval.
	MaxIntervalLimit = 60 * time.Second
	// MaxElapsedTime is the ceiling on total time spent retrying one
	// operation.
	MaxElapsedTime = 10 * time.Minute
)

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Retrier runs backend operations, retrying capacity rejections with
// exponential backoff and jitter. Any other error propagates immediately.
// The clock and randomness source are injected so tests can substitute
// deterministic implementations.
type Retrier struct {
	clock       ports.Clock
	rand        ports.Rand
	base        time.Duration
	maxInterval time.Duration
	maxElapsed  time.Duration
	logger      *slog.Logger
	onRetry     func(attempt int64)
	onExhausted func()
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithClock substitutes the time source.
func WithClock(c ports.Clock) RetrierOption {
	return func(r *Retrier) { r.clock = c }
}

// WithRand substitutes the jitter source.
func WithRand(rnd ports.Rand) RetrierOption {
	return func(r *Retrier) { r.rand = rnd }
}

// WithRetryLogger sets the structured logger.
func WithRetryLogger(logger *slog.Logger) RetrierOption {
	return func(r *Retrier) { r.logger = logger }
}

// WithRetryHooks installs observers for retry attempts and for operations
// abandoned at the elapsed-time ceiling; used for metrics.
func WithRetryHooks(onRetry func(attempt int64), onExhausted func()) RetrierOption {
	return func(r *Retrier) {
		r.onRetry = onRetry
		r.onExhausted = onExhausted
	}
}

// NewRetrier builds a Retrier with the default backoff constants and a
// real clock.
func NewRetrier(opts ...RetrierOption) *Retrier {
	r := &Retrier{
		clock:       realClock{},
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		base:        RetryBase,
		maxInterval: MaxIntervalLimit,
		maxElapsed:  MaxElapsedTime,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs op until it succeeds, fails with a non-capacity error, or the
// elapsed-time ceiling is hit. On a capacity error the loop sleeps a
// uniformly random duration in [0, min(cap, base*2*attempt)), checks the
// ceiling, and retries; once elapsed time reaches the ceiling the last
// capacity error is returned.
func (r *Retrier) Do(op func() error) error {
	attempt := int64(1)
	start := r.clock.Now()
	for {
		err := op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrCapacityExceeded) {
			return err
		}

		interval := r.base * 2 * time.Duration(attempt)
		if interval > r.maxInterval {
			interval = r.maxInterval
		}
		jitter := time.Duration(r.rand.Int63n(int64(interval)))
		r.logger.Debug("backend capacity exceeded, backing off",
			"attempt", attempt, "sleep", jitter)
		if r.onRetry != nil {
			r.onRetry(attempt)
		}
		r.clock.Sleep(jitter)

		if r.clock.Now().Sub(start) >= r.maxElapsed {
			if r.onExhausted != nil {
				r.onExhausted()
			}
			return err
		}
		attempt++
	}
}
