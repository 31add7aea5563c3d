package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/ai-runner/internal/vectordb"
)

func (s *Server) handleSummarize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := request.RequireString("doc")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: doc"), nil
	}

	summary, err := s.dispatcher.Summarize(ctx, doc, request.GetString("src_lang", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("summarize failed: %v", err)), nil
	}
	return mcp.NewToolResultText(summary), nil
}

func (s *Server) handleTranslate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireAll(request, "doc", "src_lang", "tgt_lang")
	if errResult != nil {
		return errResult, nil
	}

	translation, err := s.dispatcher.Translate(ctx, args[0], args[1], args[2])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("translate failed: %v", err)), nil
	}
	return mcp.NewToolResultText(translation), nil
}

func (s *Server) handleContextPredict(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireAll(request, "context", "query")
	if errResult != nil {
		return errResult, nil
	}

	answers, err := s.dispatcher.ContextPredict(ctx, args[0], args[1])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("context_predict failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatAnswers(answers)), nil
}

func (s *Server) handleRagPredict(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireAll(request, "db", "query")
	if errResult != nil {
		return errResult, nil
	}

	answers, err := s.dispatcher.RagPredict(ctx, args[0], args[1])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rag_predict failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatAnswers(answers)), nil
}

func (s *Server) handleListBases(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bases, err := s.dispatcher.Registry().List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documentary bases failed: %v", err)), nil
	}
	if len(bases) == 0 {
		return mcp.NewToolResultText("No documentary bases are configured."), nil
	}

	names := make([]string, 0, len(bases))
	for name := range bases {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		refs := bases[name]
		sb.WriteString(fmt.Sprintf("%s (%d reference(s))\n", name, len(refs)))
		for _, ref := range refs {
			sb.WriteString(fmt.Sprintf("  - %s\n", ref))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleSearchBase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errResult := requireAll(request, "db", "query")
	if errResult != nil {
		return errResult, nil
	}

	results, err := s.dispatcher.Registry().Retrieve(ctx, args[0], args[1])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No passages found. Add references to %q with `airunner ingest` first.", args[0])), nil
	}
	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// requireAll reads the named string arguments in order, or returns a tool
// error naming the first one missing.
func requireAll(request mcp.CallToolRequest, names ...string) ([]string, *mcp.CallToolResult) {
	values := make([]string, len(names))
	for i, name := range names {
		v, err := request.RequireString(name)
		if err != nil || strings.TrimSpace(v) == "" {
			return nil, mcp.NewToolResultError("missing required parameter: " + name)
		}
		values[i] = v
	}
	return values, nil
}

func formatAnswers(answers []string) string {
	if len(answers) == 0 {
		return "No answer found."
	}
	if len(answers) == 1 {
		return answers[0]
	}
	var sb strings.Builder
	for i, a := range answers {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, a))
	}
	return sb.String()
}

// formatSearchResults renders retrieved passages for an agent to read.
func formatSearchResults(results []vectordb.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d passage(s):\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Passage %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Reference: %s (chunk %d)\n", r.Document.Metadata.Reference, r.Document.Metadata.Chunk))
		sb.WriteString(fmt.Sprintf("Similarity: %.1f%%\n", r.Similarity*100))
		sb.WriteString("\n")
		sb.WriteString(r.Document.Content)
		sb.WriteString("\n")
	}

	return sb.String()
}
