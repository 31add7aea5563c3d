package embeddings

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
	"github.com/ziadkadry99/ai-runner/internal/hfapi"
)

const hfBatchSize = 32

// HuggingFaceEmbedder runs a sentence-transformers model through the
// feature-extraction pipeline of the inference API.
type HuggingFaceEmbedder struct {
	client     *hfapi.Client
	model      string
	dimensions int
}

// NewHuggingFaceEmbedder creates an embedder for model.
func NewHuggingFaceEmbedder(client *hfapi.Client, model string, dimensions int) *HuggingFaceEmbedder {
	return &HuggingFaceEmbedder{client: client, model: model, dimensions: dimensions}
}

func (e *HuggingFaceEmbedder) Name() string {
	return "huggingface/" + e.model
}

func (e *HuggingFaceEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *HuggingFaceEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += hfBatchSize {
		batch := texts[i:min(i+hfBatchSize, len(texts))]

		var vecs [][]float32
		req := hfapi.Request{Inputs: batch, Parameters: map[string]any{"normalize": true}}
		if err := e.client.Do(ctx, e.model, "feature-extraction", req, &vecs); err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("%w: %s returned %d embeddings, expected %d", apperr.ErrUpstream, e.model, len(vecs), len(batch))
		}
		out = append(out, vecs...)
	}
	return out, nil
}
