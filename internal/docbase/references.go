package docbase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
	"github.com/ziadkadry99/ai-runner/internal/db"
	"github.com/ziadkadry99/ai-runner/internal/documents"
	"github.com/ziadkadry99/ai-runner/internal/vectordb"
)

// List maps every configured base to its references in ingestion order.
// Bases without references map to an empty list.
func (r *Registry) List(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string, len(r.names))
	for _, name := range r.names {
		refs, err := r.References(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = refs
	}
	return out, nil
}

// References returns the reference names of one base.
func (r *Registry) References(ctx context.Context, base string) ([]string, error) {
	if _, err := r.entry(base); err != nil {
		return nil, err
	}
	refs, err := r.opts.Catalog.ListReferences(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return names, nil
}

// AddReference extracts, chunks and embeds data into base under the name
// reference. A name already present in the base is rejected with
// apperr.ErrConflict. When the store or catalog write fails, chunks already
// written are removed again.
func (r *Registry) AddReference(ctx context.Context, base, reference string, kind documents.Kind, data []byte) (*db.Reference, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference name is required", apperr.ErrValidation)
	}
	e, err := r.entry(base)
	if err != nil {
		return nil, err
	}
	docs, err := r.chunk(ctx, e, reference, kind, data)
	if err != nil {
		return nil, err
	}

	store, err := r.open(e)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := r.opts.Catalog.GetReference(ctx, base, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: reference %q in documentary base %q", apperr.ErrConflict, reference, base)
	}

	ref, err := r.write(ctx, store, base, reference, kind, docs, len(data))
	if err != nil {
		return nil, err
	}
	log.Printf("docbase: added %q to %q (%s, %d chunks)", reference, base, kind, len(docs))
	return ref, nil
}

// ReplaceReference swaps the content of reference for data, or adds it when
// the name is not recorded yet. The new chunks are extracted and embedded
// before the old ones are removed, so a parse or embedding failure leaves
// the recorded reference intact. The returned flag reports whether an
// existing reference was replaced.
func (r *Registry) ReplaceReference(ctx context.Context, base, reference string, kind documents.Kind, data []byte) (*db.Reference, bool, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, false, fmt.Errorf("%w: reference name is required", apperr.ErrValidation)
	}
	e, err := r.entry(base)
	if err != nil {
		return nil, false, err
	}
	docs, err := r.chunk(ctx, e, reference, kind, data)
	if err != nil {
		return nil, false, err
	}
	if err := r.embed(ctx, docs); err != nil {
		return nil, false, err
	}

	store, err := r.open(e)
	if err != nil {
		return nil, false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := r.opts.Catalog.GetReference(ctx, base, reference)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if existing != nil {
		if _, err := r.remove(ctx, store, existing); err != nil {
			return nil, false, err
		}
	}

	ref, err := r.write(ctx, store, base, reference, kind, docs, len(data))
	if err != nil {
		if existing != nil {
			log.Printf("docbase: %q in %q was removed but its replacement failed: %v", reference, base, err)
		}
		return nil, false, err
	}
	log.Printf("docbase: stored %q in %q (%s, %d chunks, replaced=%t)", reference, base, kind, len(docs), existing != nil)
	return ref, existing != nil, nil
}

// chunk extracts and splits data into documents ready to store.
func (r *Registry) chunk(ctx context.Context, e *entry, reference string, kind documents.Kind, data []byte) ([]vectordb.Document, error) {
	text, err := r.opts.Extractor.Extract(ctx, kind, data)
	if err != nil {
		return nil, err
	}
	chunks := e.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s: no text content", apperr.ErrParse, kind)
	}

	docs := make([]vectordb.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = vectordb.Document{
			ID:      uuid.NewString(),
			Content: c,
			Metadata: vectordb.DocumentMetadata{
				Reference: reference,
				FileKind:  string(kind),
				Chunk:     i,
			},
		}
	}
	return docs, nil
}

// embed fills in the embedding of every document in one batch.
func (r *Registry) embed(ctx context.Context, docs []vectordb.Document) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := r.opts.Embedder.Embed(ctx, texts)
	if err == nil && len(vecs) != len(docs) {
		err = fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), len(docs))
	}
	if err != nil {
		if errors.Is(err, apperr.ErrUpstream) {
			return err
		}
		return fmt.Errorf("%w: embed documents: %v", apperr.ErrStorage, err)
	}
	for i := range docs {
		docs[i].Embedding = vecs[i]
	}
	return nil
}

// write stores docs and records the reference. The caller holds e.mu.
func (r *Registry) write(ctx context.Context, store vectordb.VectorStore, base, reference string, kind documents.Kind, docs []vectordb.Document, size int) (*db.Reference, error) {
	if err := store.AddDocuments(ctx, docs); err != nil {
		r.rollback(store, base, reference)
		if errors.Is(err, apperr.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	ref := &db.Reference{
		Base:      base,
		Name:      reference,
		FileKind:  string(kind),
		Chunks:    len(docs),
		SizeBytes: int64(size),
	}
	if err := r.opts.Catalog.InsertReference(ctx, ref); err != nil {
		r.rollback(store, base, reference)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return ref, nil
}

// rollback removes partially written chunks. It runs on a fresh context so
// a cancelled request still cleans up.
func (r *Registry) rollback(store vectordb.VectorStore, base, reference string) {
	if n, err := store.DeleteByReference(context.Background(), reference); err != nil {
		log.Printf("docbase: rollback of %q in %q failed: %v", reference, base, err)
	} else if n > 0 {
		log.Printf("docbase: rolled back %d chunks of %q in %q", n, reference, base)
	}
}

// remove drops the catalog row of ref and then its chunks. When the chunks
// cannot be deleted the row is restored, so a failure leaves ref listed
// with its chunks in place. The caller holds e.mu.
func (r *Registry) remove(ctx context.Context, store vectordb.VectorStore, ref *db.Reference) (int, error) {
	if _, err := r.opts.Catalog.DeleteReference(ctx, ref.Base, ref.Name); err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	n, err := store.DeleteByReference(ctx, ref.Name)
	if err != nil {
		if rerr := r.opts.Catalog.InsertReference(context.Background(), ref); rerr != nil {
			log.Printf("docbase: restoring catalog entry %q in %q failed: %v", ref.Name, ref.Base, rerr)
		}
		return 0, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if n == 0 {
		log.Printf("docbase: no vectors found for reference %q in %q", ref.Name, ref.Base)
	}
	return n, nil
}

// DeleteReference removes every chunk of reference from base. Deleting a
// reference that is not recorded fails with apperr.ErrNotFound. Any failure
// leaves the reference recorded.
func (r *Registry) DeleteReference(ctx context.Context, base, reference string) error {
	e, err := r.entry(base)
	if err != nil {
		return err
	}
	store, err := r.open(e)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := r.opts.Catalog.GetReference(ctx, base, reference)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if existing == nil {
		return fmt.Errorf("%w: reference %q in documentary base %q", apperr.ErrNotFound, reference, base)
	}

	n, err := r.remove(ctx, store, existing)
	if err != nil {
		return err
	}
	log.Printf("docbase: deleted %q from %q (%d chunks)", reference, base, n)
	return nil
}

// Retrieve returns the chunks of base closest to query, filtered by the
// base's score threshold.
func (r *Registry) Retrieve(ctx context.Context, base, query string) ([]vectordb.SearchResult, error) {
	e, err := r.entry(base)
	if err != nil {
		return nil, err
	}
	store, err := r.open(e)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	results, err := store.Search(ctx, query, e.search)
	if err != nil {
		if errors.Is(err, apperr.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return results, nil
}

// Query retrieves passages from base and answers query with the base's
// pipeline. Unknown bases fail with apperr.ErrNotFound before anything is
// opened.
func (r *Registry) Query(ctx context.Context, base, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", apperr.ErrValidation)
	}
	results, err := r.Retrieve(ctx, base, query)
	if err != nil {
		return nil, err
	}
	return r.entries[base].answerer.Answer(ctx, query, vectordb.Passages(results))
}
