// Package llmtest provides recording fakes of the llm backends.
package llmtest

import (
	"context"
	"sync"

	"github.com/ziadkadry99/ai-runner/internal/llm"
)

// Provider is a chat-only backend that records calls and returns a canned
// response. Reply, when set, computes the response from the request.
type Provider struct {
	mu       sync.Mutex
	Calls    []llm.CompletionRequest
	Response string
	Reply    func(llm.CompletionRequest) string
	Err      error
}

func (m *Provider) Name() string { return "mock" }

func (m *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	content := m.Response
	if m.Reply != nil {
		content = m.Reply(req)
	}
	return &llm.CompletionResponse{Content: content, Model: "mock-model", FinishReason: "stop"}, nil
}

// CallCount returns how many completions were requested.
func (m *Provider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastPrompt returns the content of the final message of the latest call.
func (m *Provider) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return ""
	}
	msgs := m.Calls[len(m.Calls)-1].Messages
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content
}

// Native adds the summarization, translation and question-answering
// pipelines to Provider.
type Native struct {
	Provider

	SummarizeFn func(text string) string
	TranslateFn func(text, src, tgt string) string
	AnswerFn    func(question, context string) []llm.Answer

	mu         sync.Mutex
	Translated []string
}

func (n *Native) Summarize(_ context.Context, text string, _ map[string]any) (string, error) {
	if n.Err != nil {
		return "", n.Err
	}
	if n.SummarizeFn != nil {
		return n.SummarizeFn(text), nil
	}
	return "summary", nil
}

func (n *Native) Translate(_ context.Context, text, src, tgt string, _ map[string]any) (string, error) {
	if n.Err != nil {
		return "", n.Err
	}
	n.mu.Lock()
	n.Translated = append(n.Translated, text)
	n.mu.Unlock()
	if n.TranslateFn != nil {
		return n.TranslateFn(text, src, tgt), nil
	}
	return text, nil
}

func (n *Native) AnswerQuestion(_ context.Context, question, context string, _ map[string]any) ([]llm.Answer, error) {
	if n.Err != nil {
		return nil, n.Err
	}
	if n.AnswerFn != nil {
		return n.AnswerFn(question, context), nil
	}
	return []llm.Answer{{Text: "answer", Score: 0.9}}, nil
}
