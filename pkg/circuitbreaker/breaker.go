package circuitbreaker

import (
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jmiseikis/site-api/pkg/errors"
	"github.com/jmiseikis/site-api/pkg/logger"
	"github.com/jmiseikis/site-api/pkg/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	defaultMinRequests  = 5
	defaultFailureRatio = 0.6
	defaultOpenTimeout  = 30 * time.Second
	countInterval       = time.Minute
)

// Options tune a Breaker. Zero values select the defaults.
type Options struct {
	// MinRequests is how many calls must be seen before the failure ratio counts
	MinRequests uint32
	// FailureRatio trips the breaker once reached
	FailureRatio float64
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
	// Ignore reports errors that say nothing about the dependency's health,
	// e.g. a payload the provider rejected with a 4xx.
	Ignore func(error) bool
}

// Breaker guards calls to one outbound dependency
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// New creates a breaker for the named dependency
func New(name string, opts Options) *Breaker {
	if opts.MinRequests == 0 {
		opts.MinRequests = defaultMinRequests
	}
	if opts.FailureRatio <= 0 {
		opts.FailureRatio = defaultFailureRatio
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    countInterval,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= opts.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	if ignore := opts.Ignore; ignore != nil {
		settings.IsSuccessful = func(err error) bool {
			return err == nil || ignore(err)
		}
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Name returns the dependency name the breaker was created for
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Call runs fn through the breaker. A call refused by an open breaker is
// reported as an upstream failure of the dependency.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T

	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if IsOpen(err) {
			return zero, apperrors.UpstreamError(b.name, fmt.Errorf("circuit breaker is %s: %w", b.cb.State(), err))
		}
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result type from %s", b.name)
	}
	return typed, nil
}

// IsOpen reports whether err was produced by a breaker refusing the call
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
