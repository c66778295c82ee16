package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"resume-rag/internal/models"
)

type GuardOptions struct {
	Enabled bool
	// RequestsPerMinute <= 0 disables rate limiting
	RequestsPerMinute int
	// MaxFailures consecutive failures open the breaker; <= 0 disables it
	MaxFailures int
	OpenTimeout time.Duration
	HalfOpenMax uint32
	ResetWindow time.Duration
}

// Guarded wraps a provider with a token-bucket limiter and a circuit breaker.
// It never retries and never substitutes an answer: a tripped breaker is
// reported as a provider error.
type Guarded struct {
	inner   Provider
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func NewGuarded(inner Provider, opts GuardOptions) *Guarded {
	g := &Guarded{inner: inner}
	if opts.RequestsPerMinute > 0 {
		burst := max(opts.RequestsPerMinute/10, 1)
		g.limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), burst)
	}
	if opts.MaxFailures > 0 {
		interval := opts.ResetWindow
		if interval == 0 {
			interval = defaultGuardInterval
		}
		maxFailures := uint32(opts.MaxFailures)
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        inner.Name(),
			MaxRequests: max(opts.HalfOpenMax, 1),
			Interval:    interval,
			Timeout:     opts.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
			},
		})
	}
	return g
}

func (g *Guarded) Name() string { return g.inner.Name() }

// Close closes the wrapped provider when it holds a client.
func (g *Guarded) Close() error {
	if c, ok := g.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (g *Guarded) GenerateContent(ctx context.Context, prompt string) (string, error) {
	res, err := g.call(ctx, func() (any, error) {
		return g.inner.GenerateContent(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (g *Guarded) EmbedContent(ctx context.Context, chunks []string, purpose Purpose) ([][]float32, error) {
	res, err := g.call(ctx, func() (any, error) {
		return g.inner.EmbedContent(ctx, chunks, purpose)
	})
	if err != nil {
		return nil, err
	}
	return res.([][]float32), nil
}

func (g *Guarded) call(ctx context.Context, fn func() (any, error)) (any, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s rate limit wait: %w", models.ErrProvider, g.inner.Name(), err)
		}
	}
	if g.breaker == nil {
		return fn()
	}
	res, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s unavailable: %w", models.ErrProvider, g.inner.Name(), err)
	}
	return res, err
}
