package vectordb

// Document is one chunk of an ingested reference.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
	// Embedding is optional. Stores embed documents that leave it empty.
	Embedding []float32
}

// DocumentMetadata records where a chunk came from.
type DocumentMetadata struct {
	Reference string
	FileKind  string
	Chunk     int
}

// SearchResult pairs a document with its cosine similarity to the query.
type SearchResult struct {
	Document   Document
	Similarity float32
}

// SearchOptions narrows a search.
type SearchOptions struct {
	// Limit is the maximum number of results (k). Zero means DefaultMaxResults.
	Limit int
	// ScoreThreshold, when set, drops results whose similarity is not
	// strictly greater than it.
	ScoreThreshold *float64
}

// DefaultMaxResults is the number of chunks retrieved per query.
const DefaultMaxResults = 4
