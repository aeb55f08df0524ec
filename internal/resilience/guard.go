package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Guard combines a rate limit, a per-attempt timeout, retries and a circuit
// breaker around calls to one endpoint. Any field may be left zero.
type Guard struct {
	Limiter *rate.Limiter
	Timeout time.Duration
	Retry   RetryConfig
	Breaker *CircuitBreaker
}

// NewGuard builds a guard allowing rps requests per second (0 disables the
// limit) with the given per-attempt timeout.
func NewGuard(name string, rps float64, timeout time.Duration, retry RetryConfig, breaker CircuitBreakerConfig) *Guard {
	g := &Guard{Timeout: timeout, Retry: retry}
	if rps > 0 {
		g.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	breaker.Name = name
	g.Breaker = NewCircuitBreaker(breaker)
	if g.Retry.OnRetry == nil {
		g.Retry.OnRetry = RetryLogger(name, "call")
	}
	return g
}

// Call runs fn under the guard. Each attempt waits for the limiter, passes
// the breaker and gets its own timeout.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}
	return DoVal(ctx, g.Retry, func(ctx context.Context) (T, error) {
		var zero T
		if g.Limiter != nil {
			if err := g.Limiter.Wait(ctx); err != nil {
				return zero, eris.Wrap(err, "resilience: rate limit wait")
			}
		}
		attempt := func(ctx context.Context) (T, error) {
			if g.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, g.Timeout)
				defer cancel()
			}
			return fn(ctx)
		}
		if g.Breaker == nil {
			return attempt(ctx)
		}
		return ExecuteVal(ctx, g.Breaker, attempt)
	})
}
