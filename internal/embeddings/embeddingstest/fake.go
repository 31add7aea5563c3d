// Package embeddingstest provides a deterministic embedder for tests.
package embeddingstest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"
	"unicode"
)

// Fake embeds text as a normalized bag of hashed lowercase words, so texts
// sharing words are close and unrelated texts are near-orthogonal.
type Fake struct {
	Dims  int
	Calls atomic.Int64
	Err   error
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Dimensions() int {
	if f.Dims == 0 {
		return 64
	}
	return f.Dims
}

func (f *Fake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.Calls.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *Fake) vector(text string) []float32 {
	v := make([]float32, f.Dimensions())
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[int(h.Sum32())%len(v)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}
