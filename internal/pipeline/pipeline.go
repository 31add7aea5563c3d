// Package pipeline binds models to tasks. Each constructor inspects the
// model identifier and task once and returns one of a closed set of
// variants, so an impossible combination fails at startup instead of on
// the first request.
package pipeline

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/ai-runner/internal/config"
	"github.com/ziadkadry99/ai-runner/internal/llm"
)

// ProviderFactory builds the backend for a model identifier.
type ProviderFactory func(modelID string, seq2seq bool) (llm.Provider, error)

// DefaultFactory resolves identifiers with llm.NewProvider.
func DefaultFactory(opts llm.Options) ProviderFactory {
	return func(modelID string, seq2seq bool) (llm.Provider, error) {
		return llm.NewProvider(modelID, seq2seq, opts)
	}
}

// Variant names the concrete behaviour chosen for a model.
type Variant string

const (
	VariantGenerative Variant = "generative"
	VariantExtractive Variant = "extractive"
	VariantNative     Variant = "native"
	VariantPrompted   Variant = "prompted"
)

// Answerer answers a question from a set of passages.
type Answerer interface {
	Answer(ctx context.Context, question string, passages []string) ([]string, error)
	Variant() Variant
	Model() string
}

// NewAnswerer binds modelID to task.
//
// question-answering needs a backend with an extractive pipeline;
// text-generation and text2text-generation work with every backend.
func NewAnswerer(modelID string, task config.Task, kwargs config.Kwargs, factory ProviderFactory, gate *llm.Gate) (Answerer, error) {
	switch task {
	case config.TaskQuestionAnswering:
		p, err := factory(modelID, false)
		if err != nil {
			return nil, err
		}
		qa, ok := p.(llm.QuestionAnswerer)
		if !ok {
			return nil, fmt.Errorf("model %s: backend %s has no %s pipeline", modelID, p.Name(), task)
		}
		return &extractive{qa: qa, model: modelID, kwargs: kwargs, gate: gate}, nil

	case config.TaskTextGeneration, config.TaskText2TextGeneration:
		p, err := factory(modelID, task == config.TaskText2TextGeneration)
		if err != nil {
			return nil, err
		}
		return &generative{provider: p, model: modelID, kwargs: kwargs, gate: gate}, nil

	default:
		return nil, fmt.Errorf("model %s: unsupported task %q", modelID, task)
	}
}

// NewContextAnswerer picks the task from the backend: extractive when the
// backend has a question-answering pipeline, generative otherwise.
func NewContextAnswerer(modelID string, kwargs config.Kwargs, factory ProviderFactory, gate *llm.Gate) (Answerer, error) {
	p, err := factory(modelID, false)
	if err != nil {
		return nil, err
	}
	if qa, ok := p.(llm.QuestionAnswerer); ok {
		return &extractive{qa: qa, model: modelID, kwargs: kwargs, gate: gate}, nil
	}
	return &generative{provider: p, model: modelID, kwargs: kwargs, gate: gate}, nil
}

// generationParams maps model kwargs onto a completion request.
func generationParams(kwargs config.Kwargs, defaultMaxTokens int) (int, float64) {
	maxTokens := kwargs.Int("max_new_tokens", kwargs.Int("max_tokens", defaultMaxTokens))
	return maxTokens, kwargs.Float("temperature", 0)
}

// retrievalKeys are documentary-base kwargs consumed before the model runs.
var retrievalKeys = map[string]bool{
	"max_results":     true,
	"score_threshold": true,
	"chunk_size":      true,
	"chunk_overlap":   true,
}

// modelParams copies kwargs for the backend, leaving out retrieval settings.
func modelParams(kwargs config.Kwargs) map[string]any {
	params := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		if !retrievalKeys[k] {
			params[k] = v
		}
	}
	return params
}
