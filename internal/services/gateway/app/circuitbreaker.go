package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures one breaker per upstream.
// Closed -> (Failures consecutive errors) -> Open -> (OpenFor) -> HalfOpen;
// in HalfOpen a single probe decides between Closed and Open.
type BreakerSettings struct {
	Failures int
	OpenFor  time.Duration
	Interval time.Duration // window after which closed-state counts reset; 0 never
}

// NewBreaker builds the breaker guarding one upstream.
func NewBreaker(name string, s BreakerSettings, logger *slog.Logger, m *Metrics) *gobreaker.CircuitBreaker {
	fails := s.Failures
	if fails < 1 {
		fails = 1
	}
	openFor := s.OpenFor
	if openFor <= 0 {
		openFor = 10 * time.Second
	}
	m.setBreakerState(name, gobreaker.StateClosed)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		// a user closing the tab says nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state change", "upstream", name, "from", from.String(), "to", to.String())
			}
			m.setBreakerState(name, to)
		},
	})
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
