package pipeline

import (
	"context"
	"strings"

	"github.com/ziadkadry99/ai-runner/internal/config"
	"github.com/ziadkadry99/ai-runner/internal/llm"
)

const answerSystemPrompt = "You answer questions using only the provided context. " +
	"If the context does not contain the answer, say that you do not know. " +
	"Answer concisely in the language of the question."

// generative writes an answer with a prompt built from the passages.
type generative struct {
	provider llm.Provider
	model    string
	kwargs   config.Kwargs
	gate     *llm.Gate
}

func (g *generative) Variant() Variant { return VariantGenerative }
func (g *generative) Model() string    { return g.model }

func (g *generative) Answer(ctx context.Context, question string, passages []string) ([]string, error) {
	maxTokens, temperature := generationParams(g.kwargs, 256)
	req := llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: answerSystemPrompt},
			{Role: llm.RoleUser, Content: answerPrompt(question, passages)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var resp *llm.CompletionResponse
	err := g.gate.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = g.provider.Complete(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return []string{resp.Content}, nil
}

func answerPrompt(question string, passages []string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	if len(passages) == 0 {
		sb.WriteString("(no relevant passages)\n")
	}
	for _, p := range passages {
		sb.WriteString(p)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}

// extractive selects answer spans from the passages.
type extractive struct {
	qa     llm.QuestionAnswerer
	model  string
	kwargs config.Kwargs
	gate   *llm.Gate
}

func (e *extractive) Variant() Variant { return VariantExtractive }
func (e *extractive) Model() string    { return e.model }

// Answer returns up to top_k non-empty spans, best first. With no passages
// there is nothing to extract from and the result is empty.
func (e *extractive) Answer(ctx context.Context, question string, passages []string) ([]string, error) {
	joined := strings.TrimSpace(strings.Join(passages, "\n"))
	if joined == "" {
		return []string{}, nil
	}

	params := modelParams(e.kwargs)
	var answers []llm.Answer
	err := e.gate.Do(ctx, func(ctx context.Context) error {
		var err error
		answers, err = e.qa.AnswerQuestion(ctx, question, joined, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	topK := e.kwargs.Int("top_k", 1)
	out := make([]string, 0, len(answers))
	for _, a := range answers {
		if t := strings.TrimSpace(a.Text); t != "" {
			out = append(out, t)
		}
		if len(out) == topK {
			break
		}
	}
	return out, nil
}
