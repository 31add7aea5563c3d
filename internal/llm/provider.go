package llm

import "context"

// Provider defines the interface for text-generation backends.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// Summarizer is implemented by backends with a native summarization pipeline.
type Summarizer interface {
	Summarize(ctx context.Context, text string, params map[string]any) (string, error)
}

// Translator is implemented by backends with a native translation pipeline.
// Languages are passed in the backend's own code format.
type Translator interface {
	Translate(ctx context.Context, text, srcLang, tgtLang string, params map[string]any) (string, error)
}

// QuestionAnswerer is implemented by backends with an extractive
// question-answering pipeline.
type QuestionAnswerer interface {
	AnswerQuestion(ctx context.Context, question, context string, params map[string]any) ([]Answer, error)
}
