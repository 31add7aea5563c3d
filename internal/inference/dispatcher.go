// Package inference routes summarize, translate, context_predict and
// rag_predict calls to the models bound at startup.
package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
	"github.com/ziadkadry99/ai-runner/internal/config"
	"github.com/ziadkadry99/ai-runner/internal/docbase"
	"github.com/ziadkadry99/ai-runner/internal/llm"
	"github.com/ziadkadry99/ai-runner/internal/pipeline"
)

// DefaultSummaryLanguage keys the summarizer used when no language-specific
// one is configured.
const DefaultSummaryLanguage = "default"

const wildcard = "*"

type route struct {
	src, tgt   string
	translator pipeline.Translator
}

// Dispatcher holds every model pipeline the service exposes.
type Dispatcher struct {
	summarizers map[string]pipeline.Summarizer
	routes      []route
	contextQA   pipeline.Answerer
	registry    *docbase.Registry
}

// New resolves the summary, translation and context_qa tables of cfg.
func New(cfg *config.Config, registry *docbase.Registry, factory pipeline.ProviderFactory, gate *llm.Gate) (*Dispatcher, error) {
	d := &Dispatcher{
		summarizers: make(map[string]pipeline.Summarizer, len(cfg.Summary)),
		registry:    registry,
	}

	for lang, m := range cfg.Summary {
		s, err := pipeline.NewSummarizer(m.Model, m.Kwargs, factory, gate)
		if err != nil {
			return nil, fmt.Errorf("summary[%s]: %w", lang, err)
		}
		d.summarizers[strings.ToLower(lang)] = s
	}
	if _, ok := d.summarizers[DefaultSummaryLanguage]; !ok {
		return nil, fmt.Errorf("summary: a %q model is required", DefaultSummaryLanguage)
	}

	for i, r := range cfg.Translation {
		src, tgt := strings.ToLower(r.SrcLang), strings.ToLower(r.TgtLang)
		for _, code := range []string{src, tgt} {
			if code == wildcard {
				continue
			}
			if _, err := pipeline.LookupLanguage(code); err != nil {
				return nil, fmt.Errorf("translation[%d]: %w", i, err)
			}
		}
		t, err := pipeline.NewTranslator(r.Model, r.Kwargs, factory, gate)
		if err != nil {
			return nil, fmt.Errorf("translation[%d]: %w", i, err)
		}
		d.routes = append(d.routes, route{src: src, tgt: tgt, translator: t})
	}

	if cfg.ContextQA != nil {
		a, err := pipeline.NewContextAnswerer(cfg.ContextQA.Model, cfg.ContextQA.Kwargs, factory, gate)
		if err != nil {
			return nil, fmt.Errorf("context_qa: %w", err)
		}
		d.contextQA = a
	}

	return d, nil
}

// Summarize condenses doc with the summarizer of srcLang, falling back to
// the default one.
func (d *Dispatcher) Summarize(ctx context.Context, doc, srcLang string) (string, error) {
	if strings.TrimSpace(doc) == "" {
		return "", fmt.Errorf("%w: doc is required", apperr.ErrValidation)
	}
	s, ok := d.summarizers[strings.ToLower(strings.TrimSpace(srcLang))]
	if !ok {
		s = d.summarizers[DefaultSummaryLanguage]
	}
	return s.Summarize(ctx, doc)
}

// Translate translates doc with the first route matching the pair. Routes
// are tried in configuration order and "*" matches any supported language.
func (d *Dispatcher) Translate(ctx context.Context, doc, srcLang, tgtLang string) (string, error) {
	if strings.TrimSpace(doc) == "" {
		return "", fmt.Errorf("%w: doc is required", apperr.ErrValidation)
	}
	if strings.TrimSpace(srcLang) == "" || strings.TrimSpace(tgtLang) == "" {
		return "", fmt.Errorf("%w: src_lang and tgt_lang are required", apperr.ErrValidation)
	}
	src, err := pipeline.LookupLanguage(srcLang)
	if err != nil {
		return "", err
	}
	tgt, err := pipeline.LookupLanguage(tgtLang)
	if err != nil {
		return "", err
	}
	if src.Code == tgt.Code {
		return "", fmt.Errorf("%w: source and target language are both %q", apperr.ErrValidation, src.Code)
	}

	t := d.translatorFor(src.Code, tgt.Code)
	if t == nil {
		return "", fmt.Errorf("%w: %s -> %s", apperr.ErrUnsupportedLanguagePair, src.Code, tgt.Code)
	}
	return t.Translate(ctx, doc, src, tgt)
}

func (d *Dispatcher) translatorFor(src, tgt string) pipeline.Translator {
	for _, r := range d.routes {
		if (r.src == wildcard || r.src == src) && (r.tgt == wildcard || r.tgt == tgt) {
			return r.translator
		}
	}
	return nil
}

// ContextPredict answers query from the supplied context alone.
func (d *Dispatcher) ContextPredict(ctx context.Context, passage, query string) ([]string, error) {
	if strings.TrimSpace(passage) == "" || strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: context and query are required", apperr.ErrValidation)
	}
	if d.contextQA == nil {
		return nil, fmt.Errorf("%w: no context_qa model configured", apperr.ErrNotFound)
	}
	return d.contextQA.Answer(ctx, query, []string{passage})
}

// RagPredict answers query over the documentary base named db.
func (d *Dispatcher) RagPredict(ctx context.Context, db, query string) ([]string, error) {
	if strings.TrimSpace(db) == "" {
		return nil, fmt.Errorf("%w: db is required", apperr.ErrValidation)
	}
	return d.registry.Query(ctx, db, query)
}

// Registry returns the documentary-base registry.
func (d *Dispatcher) Registry() *docbase.Registry {
	return d.registry
}

// Pair is a configured translation route.
type Pair struct {
	Src     string `json:"src_lang"`
	Tgt     string `json:"tgt_lang"`
	Model   string `json:"model"`
	Variant string `json:"variant"`
}

// Pairs lists the translation routes in match order.
func (d *Dispatcher) Pairs() []Pair {
	out := make([]Pair, len(d.routes))
	for i, r := range d.routes {
		out[i] = Pair{Src: r.src, Tgt: r.tgt, Model: r.translator.Model(), Variant: string(r.translator.Variant())}
	}
	return out
}
