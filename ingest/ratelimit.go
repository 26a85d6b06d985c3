package ingest

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a token-bucket admission limit,
// so a misbehaving or overly chatty peer/RPC source cannot monopolize a
// lane's fetch loop ahead of the queue-depth backpressure that Engine itself
// already enforces downstream.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider returns a Provider admitting at most ratePerSecond
// fetches per second, with a burst of burst.
func NewRateLimitedProvider(inner Provider, ratePerSecond float64, burst int) *RateLimitedProvider {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (p *RateLimitedProvider) Fetch(ctx context.Context) (Fetched, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Fetched{}, err
	}
	return p.inner.Fetch(ctx)
}
