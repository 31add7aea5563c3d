package walker

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// skippedDirs are directory names, lowercased, that are never descended
// into: version control, OS clutter and vector stores kept next to the
// documents they index.
var skippedDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".airunner":    true,
	"__macosx":     true,
	".trash":       true,
	"node_modules": true,
	"vectors":      true,
}

func skipDir(name string) bool {
	return skippedDirs[strings.ToLower(name)]
}

// filter selects documents by their slash-separated path relative to the
// walk root. A pattern containing a slash is matched against that path; any
// other pattern is matched against the file name alone, so "*.pdf" selects
// PDFs at every depth.
type filter struct {
	include []string
	exclude []string
}

func newFilter(include, exclude []string) (*filter, error) {
	f := &filter{}
	var err error
	if f.include, err = compilePatterns(include); err != nil {
		return nil, err
	}
	if f.exclude, err = compilePatterns(exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func compilePatterns(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = filepath.ToSlash(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("walker: invalid pattern %q", p)
		}
		out = append(out, p)
	}
	return out, nil
}

// accepts reports whether relPath matches an include pattern (or there are
// none) and no exclude pattern.
func (f *filter) accepts(relPath string) bool {
	if len(f.include) > 0 && !matchAny(f.include, relPath) {
		return false
	}
	return !matchAny(f.exclude, relPath)
}

func matchAny(patterns []string, relPath string) bool {
	name := path.Base(relPath)
	for _, p := range patterns {
		target := relPath
		if !strings.Contains(p, "/") {
			target = name
		}
		if ok, _ := doublestar.Match(p, target); ok {
			return true
		}
	}
	return false
}
