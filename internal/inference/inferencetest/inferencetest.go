// Package inferencetest builds a Dispatcher wired to in-memory fakes for
// tests of the outer surfaces.
package inferencetest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/ai-runner/internal/config"
	"github.com/ziadkadry99/ai-runner/internal/db"
	"github.com/ziadkadry99/ai-runner/internal/docbase"
	"github.com/ziadkadry99/ai-runner/internal/documents"
	"github.com/ziadkadry99/ai-runner/internal/embeddings/embeddingstest"
	"github.com/ziadkadry99/ai-runner/internal/inference"
	"github.com/ziadkadry99/ai-runner/internal/llm"
	"github.com/ziadkadry99/ai-runner/internal/llm/llmtest"
)

// ChatResponse is what the generative backend answers with.
const ChatResponse = "generated answer"

// CatRunner stands in for pdftotext and echoes its input file, so plain text
// can be uploaded as a pdf.
type CatRunner struct{}

func (CatRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	return os.ReadFile(args[len(args)-2])
}

// NewDispatcher returns a dispatcher with one generative documentary base
// named "law". Hugging Face models are served by a Native fake that
// prefixes summaries with "short: ", translates "Bonjour" to "Hello" and
// answers questions with the first word of the context.
func NewDispatcher(t *testing.T) *inference.Dispatcher {
	t.Helper()

	catalog, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { catalog.Close() })

	native := &llmtest.Native{
		SummarizeFn: func(text string) string { return "short: " + text },
		TranslateFn: func(text, _, _ string) string {
			if text == "Bonjour" {
				return "Hello"
			}
			return text
		},
		AnswerFn: func(_, c string) []llm.Answer {
			return []llm.Answer{{Text: strings.Fields(c)[0], Score: 0.8}}
		},
	}
	chat := &llmtest.Provider{Response: ChatResponse}
	factory := func(id string, _ bool) (llm.Provider, error) {
		backend, _, err := config.ParseModel(id)
		if err != nil {
			return nil, err
		}
		if backend == config.BackendHuggingFace {
			return native, nil
		}
		return chat, nil
	}

	cfg := config.DefaultConfig()
	cfg.DocumentaryBases = []config.DocumentaryBase{{
		Name:        "law",
		PersistPath: filepath.Join(t.TempDir(), "law"),
		Model:       "ollama:llama3",
		Task:        config.TaskTextGeneration,
	}}
	cfg.Summary = map[string]config.Model{"default": {Model: "facebook/bart-large-cnn"}}
	cfg.Translation = []config.TranslationRoute{{SrcLang: "*", TgtLang: "*", Model: "facebook/nllb-200-distilled-600M"}}
	cfg.ContextQA = &config.Model{Model: "deepset/roberta-base-squad2"}

	reg, err := docbase.NewRegistry(cfg.DocumentaryBases, docbase.Options{
		Catalog:   catalog,
		Embedder:  &embeddingstest.Fake{Dims: 256},
		Extractor: documents.NewExtractor(CatRunner{}),
		Factory:   factory,
	})
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	d, err := inference.New(cfg, reg, factory, nil)
	require.NoError(t, err)
	return d
}
