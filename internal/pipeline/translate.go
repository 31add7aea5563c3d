package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/ziadkadry99/ai-runner/internal/config"
	"github.com/ziadkadry99/ai-runner/internal/llm"
)

const (
	defaultTranslationMaxLength = 200
	charsPerToken               = 4
)

// Translator translates text between two supported languages. Inputs longer
// than the model's window are cut at sentence boundaries, translated piece
// by piece and joined with newlines.
type Translator interface {
	Translate(ctx context.Context, text string, src, tgt Language) (string, error)
	Variant() Variant
	Model() string
}

// NewTranslator uses the backend's translation pipeline when it has one and
// a translation prompt otherwise.
func NewTranslator(modelID string, kwargs config.Kwargs, factory ProviderFactory, gate *llm.Gate) (Translator, error) {
	p, err := factory(modelID, true)
	if err != nil {
		return nil, err
	}
	t := &translator{
		model:    modelID,
		kwargs:   kwargs,
		gate:     gate,
		maxChars: chunkBudget(kwargs),
	}
	if native, ok := p.(llm.Translator); ok {
		t.native = native
	} else {
		t.provider = p
	}
	return t, nil
}

// chunkBudget is three quarters of max_length tokens, in characters.
func chunkBudget(kwargs config.Kwargs) int {
	maxLength := kwargs.Int("max_length", defaultTranslationMaxLength)
	if maxLength <= 0 {
		maxLength = defaultTranslationMaxLength
	}
	return max(1, maxLength*3/4) * charsPerToken
}

type translator struct {
	native   llm.Translator
	provider llm.Provider
	model    string
	kwargs   config.Kwargs
	gate     *llm.Gate
	maxChars int
}

func (t *translator) Variant() Variant {
	if t.native != nil {
		return VariantNative
	}
	return VariantPrompted
}

func (t *translator) Model() string { return t.model }

func (t *translator) Translate(ctx context.Context, text string, src, tgt Language) (string, error) {
	chunks := SplitSentences(text, t.maxChars)
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		var translated string
		err := t.gate.Do(ctx, func(ctx context.Context) error {
			var err error
			translated, err = t.translateChunk(ctx, chunk, src, tgt)
			return err
		})
		if err != nil {
			return "", err
		}
		out = append(out, translated)
	}
	return strings.Join(out, "\n"), nil
}

func (t *translator) translateChunk(ctx context.Context, chunk string, src, tgt Language) (string, error) {
	if t.native != nil {
		return t.native.Translate(ctx, chunk, src.NLLB, tgt.NLLB, modelParams(t.kwargs))
	}

	maxTokens, temperature := generationParams(t.kwargs, t.kwargs.Int("max_length", defaultTranslationMaxLength)*2)
	resp, err := t.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf("Translate the user's text from %s to %s. Reply with the translation only.", src.Name, tgt.Name)},
			{Role: llm.RoleUser, Content: chunk},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("translate with %s: %w", t.model, err)
	}
	return resp.Content, nil
}

// SplitSentences groups the sentences of text into chunks of at most
// maxChars characters. A single sentence longer than maxChars becomes its
// own chunk. Empty text yields one empty chunk so callers always translate
// something.
func SplitSentences(text string, maxChars int) []string {
	sentences := sentences(text)
	if len(sentences) == 0 {
		return []string{strings.TrimSpace(text)}
	}

	var (
		chunks []string
		cur    strings.Builder
	)
	for _, s := range sentences {
		if cur.Len() > 0 && cur.Len()+1+len(s) > maxChars {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(s)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// sentences splits after '.', '!', '?' and their CJK forms when followed
// by whitespace or the end of text, and at line breaks.
func sentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	emit := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}
	for i, r := range runes {
		switch {
		case r == '\n':
			emit(i + 1)
		case r == '.' || r == '!' || r == '?':
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				emit(i + 1)
			}
		case r == '。' || r == '！' || r == '？':
			emit(i + 1)
		}
	}
	emit(len(runes))
	return out
}
