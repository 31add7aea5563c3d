package vectordb

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/ai-runner/internal/embeddings"
)

const collectionName = "references"

// ChromemStore implements VectorStore using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	return newChromemStore(chromem.NewDB(), embedder)
}

// OpenChromemStore opens or creates a store persisted under dir. Every
// write is flushed to disk by chromem before it returns.
func OpenChromemStore(dir string, embedder embeddings.Embedder) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(dir, true)
	if err != nil {
		return nil, fmt.Errorf("open persistent db at %s: %w", dir, err)
	}
	return newChromemStore(db, embedder)
}

func newChromemStore(db *chromem.DB, embedder embeddings.Embedder) (*ChromemStore, error) {
	col, err := db.GetOrCreateCollection(collectionName, nil, embeddings.ToChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &ChromemStore{db: db, collection: col, embedder: embedder}, nil
}

// AddDocuments embeds the documents that carry no embedding in one batch
// before inserting them all.
func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	vecs := make([][]float32, len(docs))
	var (
		missing []int
		texts   []string
	)
	for i, doc := range docs {
		if len(doc.Embedding) > 0 {
			vecs[i] = doc.Embedding
			continue
		}
		missing = append(missing, i)
		texts = append(texts, doc.Content)
	}
	if len(texts) > 0 {
		embedded, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed documents: %w", err)
		}
		if len(embedded) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d documents", len(embedded), len(texts))
		}
		for j, i := range missing {
			vecs[i] = embedded[j]
		}
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  metadataToMap(doc.Metadata),
			Embedding: vecs[i],
		}
	}

	return s.collection.AddDocuments(ctx, chromDocs, 1)
}

func (s *ChromemStore) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	limit = min(limit, count)

	results, err := s.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if opts.ScoreThreshold != nil && float64(r.Similarity) <= *opts.ScoreThreshold {
			continue
		}
		searchResults = append(searchResults, SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		})
	}

	return searchResults, nil
}

func (s *ChromemStore) DeleteByReference(ctx context.Context, reference string) (int, error) {
	before := s.collection.Count()
	if before == 0 {
		return 0, nil
	}
	where := map[string]string{"reference": reference}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return 0, fmt.Errorf("chromem delete: %w", err)
	}
	return before - s.collection.Count(), nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func metadataToMap(m DocumentMetadata) map[string]string {
	return map[string]string{
		"reference": m.Reference,
		"file_kind": m.FileKind,
		"chunk":     strconv.Itoa(m.Chunk),
	}
}

func mapToMetadata(m map[string]string) DocumentMetadata {
	chunk, _ := strconv.Atoi(m["chunk"])
	return DocumentMetadata{
		Reference: m["reference"],
		FileKind:  m["file_kind"],
		Chunk:     chunk,
	}
}
