package embeddings

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// LimitedEmbedder bounds how many Embed calls run at once. The same
// semaphore is shared with the generation providers so embedding and
// inference compete for one budget.
type LimitedEmbedder struct {
	inner Embedder
	sem   *semaphore.Weighted
}

// NewLimitedEmbedder wraps inner with sem.
func NewLimitedEmbedder(inner Embedder, sem *semaphore.Weighted) *LimitedEmbedder {
	return &LimitedEmbedder{inner: inner, sem: sem}
}

func (e *LimitedEmbedder) Name() string    { return e.inner.Name() }
func (e *LimitedEmbedder) Dimensions() int { return e.inner.Dimensions() }

func (e *LimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)
	return e.inner.Embed(ctx, texts)
}
