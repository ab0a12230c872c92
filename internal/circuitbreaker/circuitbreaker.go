// Package circuitbreaker wraps sony/gobreaker with typed results and
// apperror translation.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/swap-quoter/internal/apperror"
)

// Config holds breaker settings.
type Config struct {
	Name                string
	MaxRequests         uint32        // allowed probes while half-open
	Interval            time.Duration // closed-state counter reset period
	Timeout             time.Duration // open-state duration before half-open
	ConsecutiveFailures uint32        // trips the breaker

	// IsSuccessful classifies errors that should not count as failures,
	// e.g. well-formed error replies from a healthy upstream.
	IsSuccessful  func(err error) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig returns the settings used for upstream RPC calls.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             15 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// CircuitBreaker guards calls returning T.
type CircuitBreaker[T any] struct {
	name string
	cb   *gobreaker.CircuitBreaker[T]
}

// New creates a breaker from cfg.
func New[T any](cfg Config) *CircuitBreaker[T] {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
		IsSuccessful:  cfg.IsSuccessful,
	}

	return &CircuitBreaker[T]{
		name: cfg.Name,
		cb:   gobreaker.NewCircuitBreaker[T](settings),
	}
}

// Execute runs fn unless the breaker is open. Rejections surface as
// CodeCircuitOpen.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	res, err := c.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return res, apperror.New(apperror.CodeCircuitOpen,
			apperror.WithCause(err),
			apperror.WithContext(c.name))
	}
	return res, err
}

// State returns the current breaker state.
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.cb.State()
}

// Name returns the breaker name.
func (c *CircuitBreaker[T]) Name() string {
	return c.name
}
