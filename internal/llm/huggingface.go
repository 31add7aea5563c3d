package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
	"github.com/ziadkadry99/ai-runner/internal/hfapi"
)

// HuggingFaceProvider runs models through the Hugging Face inference API.
// Besides plain generation it exposes the summarization, translation and
// question-answering pipelines natively.
type HuggingFaceProvider struct {
	client  *hfapi.Client
	model   string
	seq2seq bool
}

// NewHuggingFaceProvider creates a provider for model. seq2seq selects the
// text2text-generation request shape.
func NewHuggingFaceProvider(client *hfapi.Client, model string, seq2seq bool) *HuggingFaceProvider {
	return &HuggingFaceProvider{client: client, model: model, seq2seq: seq2seq}
}

func (p *HuggingFaceProvider) Name() string {
	return "huggingface"
}

type hfGenerated struct {
	GeneratedText string `json:"generated_text"`
}

// Complete flattens the conversation into a single prompt.
func (p *HuggingFaceProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, m.Content)
	}
	prompt := strings.Join(parts, "\n\n")

	params := map[string]any{}
	if req.MaxTokens > 0 {
		params["max_new_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		params["temperature"] = req.Temperature
		params["do_sample"] = true
	}
	if !p.seq2seq {
		params["return_full_text"] = false
	}

	var out []hfGenerated
	if err := p.client.Do(ctx, model, "", hfapi.Request{Inputs: prompt, Parameters: params}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned no generations", apperr.ErrUpstream, model)
	}

	return &CompletionResponse{
		Content:      strings.TrimSpace(out[0].GeneratedText),
		InputTokens:  EstimateTokens(prompt),
		OutputTokens: EstimateTokens(out[0].GeneratedText),
		Model:        model,
		FinishReason: "stop",
	}, nil
}

func (p *HuggingFaceProvider) Summarize(ctx context.Context, text string, params map[string]any) (string, error) {
	var out []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := p.client.Do(ctx, p.model, "", hfapi.Request{Inputs: text, Parameters: params}, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("%w: %s returned no summary", apperr.ErrUpstream, p.model)
	}
	return strings.TrimSpace(out[0].SummaryText), nil
}

func (p *HuggingFaceProvider) Translate(ctx context.Context, text, srcLang, tgtLang string, params map[string]any) (string, error) {
	merged := map[string]any{"src_lang": srcLang, "tgt_lang": tgtLang}
	for k, v := range params {
		merged[k] = v
	}
	var out []struct {
		TranslationText string `json:"translation_text"`
	}
	if err := p.client.Do(ctx, p.model, "", hfapi.Request{Inputs: text, Parameters: merged}, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("%w: %s returned no translation", apperr.ErrUpstream, p.model)
	}
	return strings.TrimSpace(out[0].TranslationText), nil
}

// AnswerQuestion returns candidate spans best first. The pipeline answers
// with a bare object when top_k is 1 and with a list otherwise.
func (p *HuggingFaceProvider) AnswerQuestion(ctx context.Context, question, context string, params map[string]any) ([]Answer, error) {
	req := hfapi.Request{
		Inputs:     hfapi.QAInputs{Question: question, Context: context},
		Parameters: params,
	}
	var raw json.RawMessage
	if err := p.client.Do(ctx, p.model, "", req, &raw); err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	var answers []Answer
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &answers); err != nil {
			return nil, fmt.Errorf("%w: decode answers from %s: %v", apperr.ErrUpstream, p.model, err)
		}
	} else {
		var a Answer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("%w: decode answer from %s: %v", apperr.ErrUpstream, p.model, err)
		}
		answers = []Answer{a}
	}
	return answers, nil
}
