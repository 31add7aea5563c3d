package mcp

import "github.com/mark3labs/mcp-go/mcp"

var summarizeTool = mcp.NewTool("summarize",
	mcp.WithDescription("Summarize a text with the model configured for its language."),
	mcp.WithString("doc",
		mcp.Required(),
		mcp.Description("Text to summarize"),
	),
	mcp.WithString("src_lang",
		mcp.Description("ISO 639-1 code of the text language; selects a language specific model when one is configured"),
	),
)

var translateTool = mcp.NewTool("translate",
	mcp.WithDescription("Translate a text between two languages given as ISO 639-1 codes."),
	mcp.WithString("doc",
		mcp.Required(),
		mcp.Description("Text to translate"),
	),
	mcp.WithString("src_lang",
		mcp.Required(),
		mcp.Description("Source language, e.g. fr"),
	),
	mcp.WithString("tgt_lang",
		mcp.Required(),
		mcp.Description("Target language, e.g. en"),
	),
)

var contextPredictTool = mcp.NewTool("context_predict",
	mcp.WithDescription("Answer a question from a passage supplied by the caller."),
	mcp.WithString("context",
		mcp.Required(),
		mcp.Description("Passage containing the answer"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Question to answer"),
	),
)

var ragPredictTool = mcp.NewTool("rag_predict",
	mcp.WithDescription("Answer a question from the references stored in a documentary base."),
	mcp.WithString("db",
		mcp.Required(),
		mcp.Description("Name of the documentary base"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Question to answer"),
	),
)

var listBasesTool = mcp.NewTool("list_documentary_bases",
	mcp.WithDescription("List the documentary bases and the references each one holds."),
)

var searchBaseTool = mcp.NewTool("search_documentary_base",
	mcp.WithDescription("Return the passages of a documentary base closest to a query, without running the answering model."),
	mcp.WithString("db",
		mcp.Required(),
		mcp.Description("Name of the documentary base"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
)
