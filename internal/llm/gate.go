package llm

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Gate bounds the number of in-flight backend calls and, optionally, their
// rate. A nil *Gate lets every call through.
type Gate struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewGate allows at most concurrency calls at once and, when rpm > 0, at
// most rpm calls per minute with a burst of rpm.
func NewGate(concurrency, rpm int) *Gate {
	g := &Gate{sem: semaphore.NewWeighted(int64(max(1, concurrency)))}
	if rpm > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
	}
	return g
}

// Semaphore exposes the concurrency budget so embedders can share it.
func (g *Gate) Semaphore() *semaphore.Weighted {
	return g.sem
}

// Do runs fn once a slot is free and the rate limit allows it.
func (g *Gate) Do(ctx context.Context, fn func(context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)
	return fn(ctx)
}
