// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Default guard settings.
const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 30 * time.Second
)

// GuardConfig configures request pacing and the circuit breaker.
type GuardConfig struct {
	// RequestsPerMinute caps the call rate. Zero disables the limiter.
	RequestsPerMinute int
	// Burst is the limiter bucket size.
	Burst int
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a probe.
	OpenTimeout time.Duration
}

// GuardConfigFrom extracts the guard settings from a SearchConfig.
func GuardConfigFrom(cfg types.SearchConfig) GuardConfig {
	return GuardConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		Burst:             cfg.Burst,
		MaxFailures:       cfg.BreakerMaxFailures,
		OpenTimeout:       cfg.BreakerTimeout,
	}
}

// Guarded wraps a Searcher with a rate limiter and a circuit breaker.
// When the provider fails repeatedly the circuit opens and calls fail
// fast instead of burning retries against an unavailable API.
type Guarded struct {
	inner   Searcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*Response]
}

// NewGuarded wraps inner. Zero config fields take defaults.
func NewGuarded(inner Searcher, cfg GuardConfig, logger logrus.FieldLogger) *Guarded {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.OpenTimeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}

	g := &Guarded{inner: inner}
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}

	g.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "search:" + inner.Name(),
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state change")
		},
		IsSuccessful: countsAsSuccess,
	})
	return g
}

// countsAsSuccess keeps caller mistakes and cancellations from tripping
// the breaker. Only provider-side failures count.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrEmptyQuery) || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// Name returns the wrapped searcher's name.
func (g *Guarded) Name() string { return g.inner.Name() }

// Search waits for a limiter token, then calls the wrapped searcher
// through the circuit breaker.
func (g *Guarded) Search(ctx context.Context, req Request) (*Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	resp, err := g.breaker.Execute(func() (*Response, error) {
		return g.inner.Search(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("searcher %q circuit open: %w", g.inner.Name(), err)
		}
		return nil, err
	}
	return resp, nil
}

// State returns the circuit breaker state for monitoring.
func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}

var _ Searcher = (*Guarded)(nil)
var _ Searcher = (*Tavily)(nil)
