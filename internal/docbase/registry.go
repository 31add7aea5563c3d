// Package docbase manages the documentary bases: named vector stores of
// ingested references, each bound to the pipeline that answers questions
// over it.
package docbase

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
	"github.com/ziadkadry99/ai-runner/internal/config"
	"github.com/ziadkadry99/ai-runner/internal/db"
	"github.com/ziadkadry99/ai-runner/internal/documents"
	"github.com/ziadkadry99/ai-runner/internal/embeddings"
	"github.com/ziadkadry99/ai-runner/internal/llm"
	"github.com/ziadkadry99/ai-runner/internal/pipeline"
	"github.com/ziadkadry99/ai-runner/internal/vectordb"
)

// Options carries the collaborators shared by every base.
type Options struct {
	Catalog   *db.DB
	Embedder  embeddings.Embedder
	Extractor *documents.Extractor
	Factory   pipeline.ProviderFactory
	Gate      *llm.Gate
}

// Registry maps base names to their lazily opened stores.
type Registry struct {
	names   []string
	entries map[string]*entry
	opts    Options
}

// entry holds one configured base. initMu serializes materialization; mu
// is held exclusively while references are added or deleted and shared
// while the store is searched.
type entry struct {
	cfg      config.DocumentaryBase
	answerer pipeline.Answerer
	search   vectordb.SearchOptions
	splitter *documents.Splitter

	initMu sync.Mutex
	store  vectordb.VectorStore
	lock   *flock.Flock

	mu sync.RWMutex
}

// NewRegistry resolves every base's pipeline up front so that a bad
// model/task pairing fails here. Stores are opened on first use.
func NewRegistry(bases []config.DocumentaryBase, opts Options) (*Registry, error) {
	if opts.Extractor == nil {
		opts.Extractor = documents.NewExtractor(nil)
	}
	r := &Registry{entries: make(map[string]*entry, len(bases)), opts: opts}
	for _, b := range bases {
		if _, dup := r.entries[b.Name]; dup {
			return nil, fmt.Errorf("documentary base %q configured twice", b.Name)
		}
		answerer, err := pipeline.NewAnswerer(b.Model, b.Task, b.Kwargs, opts.Factory, opts.Gate)
		if err != nil {
			return nil, fmt.Errorf("documentary base %q: %w", b.Name, err)
		}
		e := &entry{
			cfg:      b,
			answerer: answerer,
			search:   searchOptions(b.Kwargs),
			splitter: documents.NewSplitter(
				b.Kwargs.Int("chunk_size", documents.DefaultChunkSize),
				b.Kwargs.Int("chunk_overlap", documents.DefaultChunkOverlap),
			),
		}
		r.names = append(r.names, b.Name)
		r.entries[b.Name] = e
	}
	return r, nil
}

func searchOptions(kwargs config.Kwargs) vectordb.SearchOptions {
	opts := vectordb.SearchOptions{Limit: kwargs.Int("max_results", vectordb.DefaultMaxResults)}
	if t, ok := kwargs.OptionalFloat("score_threshold"); ok {
		opts.ScoreThreshold = &t
	}
	return opts
}

// Names returns the configured base names in configuration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Info describes a configured base.
type Info struct {
	Name       string
	Model      string
	Task       config.Task
	Variant    pipeline.Variant
	Open       bool
	References int
}

// Describe reports a base's binding without opening its store.
func (r *Registry) Describe(ctx context.Context, name string) (*Info, error) {
	e, err := r.entry(name)
	if err != nil {
		return nil, err
	}
	refs, err := r.opts.Catalog.ListReferences(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	e.initMu.Lock()
	open := e.store != nil
	e.initMu.Unlock()
	return &Info{
		Name:       name,
		Model:      e.cfg.Model,
		Task:       e.cfg.Task,
		Variant:    e.answerer.Variant(),
		Open:       open,
		References: len(refs),
	}, nil
}

func (r *Registry) entry(name string) (*entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: documentary base %q", apperr.ErrNotFound, name)
	}
	return e, nil
}

// open materializes the store of e at most once. A failed attempt leaves
// the entry closed so the next call retries.
func (r *Registry) open(e *entry) (vectordb.VectorStore, error) {
	e.initMu.Lock()
	defer e.initMu.Unlock()
	if e.store != nil {
		return e.store, nil
	}

	dir := e.cfg.PersistPath
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", apperr.ErrStorage, dir, err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", apperr.ErrStorage, dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s is in use by another process", apperr.ErrStorage, dir)
	}

	store, err := vectordb.OpenChromemStore(filepath.Join(dir, "vectors"), r.opts.Embedder)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	e.store = store
	e.lock = lock
	log.Printf("docbase: opened %q at %s (%d chunks, %s %s)", e.cfg.Name, dir, store.Count(), e.answerer.Variant(), e.cfg.Model)
	return store, nil
}

// Warm opens every base, stopping at the first failure.
func (r *Registry) Warm() error {
	for _, name := range r.names {
		if _, err := r.open(r.entries[name]); err != nil {
			return fmt.Errorf("documentary base %q: %w", name, err)
		}
	}
	return nil
}

// Close releases the persist_path locks of every opened base.
func (r *Registry) Close() error {
	var firstErr error
	for _, name := range r.names {
		e := r.entries[name]
		e.initMu.Lock()
		if e.lock != nil {
			if err := e.lock.Unlock(); err != nil && firstErr == nil {
				firstErr = err
			}
			e.lock = nil
			e.store = nil
		}
		e.initMu.Unlock()
	}
	return firstErr
}
