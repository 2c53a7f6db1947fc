package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

const (
	DefaultRequestsPerSecond = 5.0
	DefaultBurst             = 5
)

// NewLimiter returns a token bucket for provider calls. A non-positive rate
// disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = DefaultBurst
	}
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Limited waits on a shared limiter before every request to the wrapped provider.
type Limited struct {
	next    Provider
	limiter *rate.Limiter
}

func NewLimited(next Provider, limiter *rate.Limiter) *Limited {
	if limiter == nil {
		limiter = NewLimiter(DefaultRequestsPerSecond, DefaultBurst)
	}
	return &Limited{
		next:    next,
		limiter: limiter,
	}
}

func (l *Limited) Name() string {
	return l.next.Name()
}

func (l *Limited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limiter: %w", err)
	}
	return l.next.Embed(ctx, texts)
}
