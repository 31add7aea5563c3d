package vectordb

import "context"

// VectorStore defines the interface for storing and searching reference chunks.
type VectorStore interface {
	// AddDocuments adds documents to the store.
	AddDocuments(ctx context.Context, docs []Document) error

	// Search performs a semantic search using the query text.
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)

	// DeleteByReference removes every chunk of the reference and returns
	// how many were removed.
	DeleteByReference(ctx context.Context, reference string) (int, error)

	// Count returns the total number of documents in the store.
	Count() int
}
