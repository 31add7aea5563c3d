package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
	"github.com/ziadkadry99/ai-runner/internal/config"
	"github.com/ziadkadry99/ai-runner/internal/embeddings/embeddingstest"
	"github.com/ziadkadry99/ai-runner/internal/hfapi"
)

func TestHuggingFaceEmbedderBatches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Inputs []string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := make([][]float32, len(req.Inputs))
		for i := range out {
			out[i] = []float32{1, 0, 0}
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	e := NewHuggingFaceEmbedder(hfapi.New("", srv.URL), "org/minilm", 3)
	texts := make([]string, hfBatchSize+5)
	for i := range texts {
		texts[i] = "chunk"
	}
	vecs, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vecs, len(texts))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "huggingface/org/minilm", e.Name())
}

func TestHuggingFaceEmbedderCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1,0]]`))
	}))
	defer srv.Close()

	e := NewHuggingFaceEmbedder(hfapi.New("", srv.URL), "m", 2)
	_, err := e.Embed(context.Background(), []string{"a", "b"})
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		out := ollamaEmbedResponse{}
		for range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{0.5, 0.5})
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 2, srv.URL)
	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)

	empty, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestOllamaEmbedderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder("missing", 2, srv.URL).Embed(context.Background(), []string{"a"})
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
}

func TestLimitedEmbedderSerializes(t *testing.T) {
	slow := &slowEmbedder{delay: 20 * time.Millisecond}
	e := NewLimitedEmbedder(slow, semaphore.NewWeighted(1))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Embed(context.Background(), []string{"x"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), slow.maxActive.Load())
}

func TestLimitedEmbedderContextCancelled(t *testing.T) {
	sem := semaphore.NewWeighted(1)
	require.True(t, sem.TryAcquire(1))
	e := NewLimitedEmbedder(&embeddingstest.Fake{}, sem)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToChromemFunc(t *testing.T) {
	fn := ToChromemFunc(&embeddingstest.Fake{Dims: 8})
	v, err := fn(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, v, 8)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	e, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &HuggingFaceEmbedder{}, e)
	assert.Equal(t, 384, e.Dimensions())

	cfg.Embedding = config.EmbeddingConfig{Provider: config.BackendOllama, Model: "nomic-embed-text", Dimensions: 768}
	e, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OllamaEmbedder{}, e)

	t.Setenv("OPENAI_API_KEY", "")
	cfg.Embedding = config.EmbeddingConfig{Provider: config.BackendOpenAI, Model: "text-embedding-3-small"}
	_, err = New(cfg)
	assert.Error(t, err)

	cfg.Embedding.Provider = "bogus"
	_, err = New(cfg)
	assert.Error(t, err)
}

type slowEmbedder struct {
	delay     time.Duration
	active    atomic.Int32
	maxActive atomic.Int32
}

func (s *slowEmbedder) Name() string    { return "slow" }
func (s *slowEmbedder) Dimensions() int { return 1 }

func (s *slowEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	n := s.active.Add(1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(s.delay)
	s.active.Add(-1)
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}
