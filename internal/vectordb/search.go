package vectordb

import (
	"fmt"
	"strings"
)

// FormatContext renders retrieved chunks as the context block of a prompt.
func FormatContext(results []SearchResult) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] (%s)\n%s", i+1, r.Document.Metadata.Reference, r.Document.Content)
	}
	return sb.String()
}

// Passages returns the content of each result in order.
func Passages(results []SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.Content
	}
	return out
}
