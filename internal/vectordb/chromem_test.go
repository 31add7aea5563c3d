package vectordb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ziadkadry99/ai-runner/internal/embeddings/embeddingstest"
)

func sampleDocs() []Document {
	return []Document{
		{ID: "a1", Content: "The civil code governs contracts and property", Metadata: DocumentMetadata{Reference: "civil", FileKind: "pdf", Chunk: 0}},
		{ID: "a2", Content: "Contracts require consent of the parties", Metadata: DocumentMetadata{Reference: "civil", FileKind: "pdf", Chunk: 1}},
		{ID: "b1", Content: "Penguins live in the southern hemisphere", Metadata: DocumentMetadata{Reference: "birds", FileKind: "epub", Chunk: 0}},
	}
}

func TestChromemStore_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	store, err := NewChromemStore(&embeddingstest.Fake{Dims: 1024})
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	if err := store.AddDocuments(ctx, sampleDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if store.Count() != 3 {
		t.Fatalf("Count: got %d, want 3", store.Count())
	}

	results, err := store.Search(ctx, "penguins hemisphere", SearchOptions{Limit: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Document.Metadata.Reference != "birds" {
		t.Errorf("expected birds chunk first, got %+v", results[0].Document)
	}
	if results[0].Document.Metadata.FileKind != "epub" {
		t.Errorf("metadata not preserved: %+v", results[0].Document.Metadata)
	}
}

func TestChromemStore_SearchClampsLimit(t *testing.T) {
	ctx := context.Background()
	store, _ := NewChromemStore(&embeddingstest.Fake{Dims: 1024})
	if err := store.AddDocuments(ctx, sampleDocs()[:2]); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "contracts", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestChromemStore_SearchEmpty(t *testing.T) {
	store, _ := NewChromemStore(&embeddingstest.Fake{Dims: 1024})
	results, err := store.Search(context.Background(), "anything", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil, got %v", results)
	}
}

func TestChromemStore_ScoreThreshold(t *testing.T) {
	ctx := context.Background()
	store, _ := NewChromemStore(&embeddingstest.Fake{Dims: 1024})
	if err := store.AddDocuments(ctx, sampleDocs()); err != nil {
		t.Fatal(err)
	}

	threshold := 0.3
	results, err := store.Search(ctx, "penguins southern hemisphere", SearchOptions{Limit: 3, ScoreThreshold: &threshold})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected only the matching chunk above threshold, got %d", len(results))
	}
	if results[0].Similarity <= float32(threshold) {
		t.Errorf("similarity %f not above threshold", results[0].Similarity)
	}
}

func TestChromemStore_DeleteByReference(t *testing.T) {
	ctx := context.Background()
	store, _ := NewChromemStore(&embeddingstest.Fake{Dims: 1024})
	if err := store.AddDocuments(ctx, sampleDocs()); err != nil {
		t.Fatal(err)
	}

	n, err := store.DeleteByReference(ctx, "civil")
	if err != nil {
		t.Fatalf("DeleteByReference: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 chunks removed, got %d", n)
	}

	results, _ := store.Search(ctx, "contracts consent civil code", SearchOptions{Limit: 4})
	for _, r := range results {
		if r.Document.Metadata.Reference == "civil" {
			t.Errorf("deleted chunk still retrievable: %+v", r.Document)
		}
	}

	n, err = store.DeleteByReference(ctx, "civil")
	if err != nil || n != 0 {
		t.Errorf("second delete: n=%d err=%v", n, err)
	}
}

func TestChromemStore_PrecomputedEmbeddings(t *testing.T) {
	ctx := context.Background()
	embedder := &embeddingstest.Fake{Dims: 1024}
	store, _ := NewChromemStore(embedder)

	vecs, _ := embedder.Embed(ctx, []string{"Penguins live in Antarctica."})
	docs := []Document{
		{ID: "a", Content: "Penguins live in Antarctica.", Embedding: vecs[0], Metadata: DocumentMetadata{Reference: "birds"}},
		{ID: "b", Content: "Puffins nest on cliffs.", Metadata: DocumentMetadata{Reference: "birds", Chunk: 1}},
	}
	embedder.Calls.Store(0)
	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatal(err)
	}
	if got := embedder.Calls.Load(); got != 1 {
		t.Errorf("expected one embedding batch for the missing vector, got %d", got)
	}

	embedder.Err = errors.New("embedder down")
	if err := store.AddDocuments(ctx, []Document{{ID: "c", Content: "Gulls.", Embedding: vecs[0]}}); err != nil {
		t.Errorf("embedded documents must not call the embedder: %v", err)
	}
	if store.Count() != 3 {
		t.Errorf("expected 3 documents, got %d", store.Count())
	}
}

func TestChromemStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenChromemStore(dir, &embeddingstest.Fake{Dims: 1024})
	if err != nil {
		t.Fatalf("OpenChromemStore: %v", err)
	}
	if err := store.AddDocuments(ctx, sampleDocs()); err != nil {
		t.Fatal(err)
	}
	if _, err := store.DeleteByReference(ctx, "birds"); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenChromemStore(dir, &embeddingstest.Fake{Dims: 1024})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Count() != 2 {
		t.Fatalf("Count after reopen: got %d, want 2", reopened.Count())
	}
	results, err := reopened.Search(ctx, "contracts", SearchOptions{Limit: 2})
	if err != nil {
		t.Fatalf("Search after reopen: %v", err)
	}
	for _, r := range results {
		if r.Document.Metadata.Reference != "civil" {
			t.Errorf("unexpected reference after reopen: %+v", r.Document.Metadata)
		}
	}
}

func TestFormatContext(t *testing.T) {
	results := []SearchResult{
		{Document: Document{Content: "first chunk", Metadata: DocumentMetadata{Reference: "civil"}}},
		{Document: Document{Content: "second chunk", Metadata: DocumentMetadata{Reference: "penal"}}},
	}
	out := FormatContext(results)
	if !strings.Contains(out, "[1] (civil)\nfirst chunk") || !strings.Contains(out, "[2] (penal)\nsecond chunk") {
		t.Errorf("unexpected context: %q", out)
	}
	if FormatContext(nil) != "" {
		t.Error("expected empty context for no results")
	}
	if got := Passages(results); len(got) != 2 || got[1] != "second chunk" {
		t.Errorf("Passages() = %v", got)
	}
}
