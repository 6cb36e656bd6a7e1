package ratelimit

import "context"

// RateLimiter throttles outbound calls per named resource,
// e.g. the generation provider or the publish API.
type RateLimiter interface {
	Allow(ctx context.Context, resource string) (bool, error)
	Wait(ctx context.Context, resource string) error
}
