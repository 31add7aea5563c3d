// Package documents turns uploaded epub, docx and pdf files into plain text
// and splits that text into chunks for embedding.
package documents

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
)

// Kind is a supported document format.
type Kind string

const (
	KindEPUB Kind = "epub"
	KindDOCX Kind = "docx"
	KindPDF  Kind = "pdf"
)

// ParseKind accepts a bare kind ("pdf") or a file name ("report.PDF").
func ParseKind(s string) (Kind, error) {
	ext := strings.ToLower(strings.TrimSpace(s))
	if e := filepath.Ext(ext); e != "" {
		ext = e
	}
	switch k := Kind(strings.TrimPrefix(ext, ".")); k {
	case KindEPUB, KindDOCX, KindPDF:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q (expected epub, docx or pdf)", apperr.ErrUnsupportedFormat, s)
}

// Extractor pulls plain text out of documents.
type Extractor struct {
	runner CommandRunner
}

// NewExtractor creates an Extractor. PDF extraction shells out through
// runner; nil selects the exec-based runner.
func NewExtractor(runner CommandRunner) *Extractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Extractor{runner: runner}
}

// Extract returns the text of data. Unreadable or empty documents fail
// with apperr.ErrParse.
func (e *Extractor) Extract(ctx context.Context, kind Kind, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch kind {
	case KindEPUB:
		text, err = extractEPUB(data)
	case KindDOCX:
		text, err = extractDOCX(data)
	case KindPDF:
		text, err = extractPDF(ctx, e.runner, data)
	default:
		return "", fmt.Errorf("%w: %q", apperr.ErrUnsupportedFormat, kind)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperr.ErrParse, kind, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s: no text content", apperr.ErrParse, kind)
	}
	return text, nil
}
