package pipeline

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/ai-runner/internal/config"
	"github.com/ziadkadry99/ai-runner/internal/llm"
)

// Summarizer condenses a document.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	Variant() Variant
	Model() string
}

// NewSummarizer uses the backend's summarization pipeline when it has one
// and a summarization prompt otherwise.
func NewSummarizer(modelID string, kwargs config.Kwargs, factory ProviderFactory, gate *llm.Gate) (Summarizer, error) {
	p, err := factory(modelID, true)
	if err != nil {
		return nil, err
	}
	if s, ok := p.(llm.Summarizer); ok {
		return &nativeSummarizer{s: s, model: modelID, kwargs: kwargs, gate: gate}, nil
	}
	return &promptedSummarizer{provider: p, model: modelID, kwargs: kwargs, gate: gate}, nil
}

type nativeSummarizer struct {
	s      llm.Summarizer
	model  string
	kwargs config.Kwargs
	gate   *llm.Gate
}

func (n *nativeSummarizer) Variant() Variant { return VariantNative }
func (n *nativeSummarizer) Model() string    { return n.model }

func (n *nativeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	var out string
	err := n.gate.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = n.s.Summarize(ctx, text, modelParams(n.kwargs))
		return err
	})
	return out, err
}

type promptedSummarizer struct {
	provider llm.Provider
	model    string
	kwargs   config.Kwargs
	gate     *llm.Gate
}

func (p *promptedSummarizer) Variant() Variant { return VariantPrompted }
func (p *promptedSummarizer) Model() string    { return p.model }

func (p *promptedSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	maxTokens, temperature := generationParams(p.kwargs, p.kwargs.Int("max_length", 256))
	req := llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Summarize the user's text in a few sentences, in the same language as the text. Reply with the summary only."},
			{Role: llm.RoleUser, Content: text},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var resp *llm.CompletionResponse
	err := p.gate.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = p.provider.Complete(ctx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("summarize with %s: %w", p.model, err)
	}
	return resp.Content, nil
}
