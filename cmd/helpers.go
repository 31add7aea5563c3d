package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/ziadkadry99/ai-runner/internal/config"
	"github.com/ziadkadry99/ai-runner/internal/db"
	"github.com/ziadkadry99/ai-runner/internal/docbase"
	"github.com/ziadkadry99/ai-runner/internal/embeddings"
	"github.com/ziadkadry99/ai-runner/internal/inference"
	"github.com/ziadkadry99/ai-runner/internal/llm"
	"github.com/ziadkadry99/ai-runner/internal/pipeline"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	path := config.ResolvePath(cfgFile)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `airunner init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// services bundles everything the serving commands share.
type services struct {
	catalog    *db.DB
	registry   *docbase.Registry
	dispatcher *inference.Dispatcher
}

// newServices opens the reference catalog and builds the models, registry
// and dispatcher described by cfg. Documentary base stores open lazily.
func newServices(cfg *config.Config) (*services, error) {
	gate := llm.NewGate(cfg.InferenceConcurrency(), cfg.Server.RequestsPerMinute)
	factory := pipeline.DefaultFactory(llm.OptionsFromEnv(cfg))

	embedder, err := embeddings.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	catalogPath := filepath.Join(cfg.DataDir, "airunner.db")
	catalog, err := db.Open(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("opening reference catalog: %w", err)
	}

	registry, err := docbase.NewRegistry(cfg.DocumentaryBases, docbase.Options{
		Catalog:  catalog,
		Embedder: embeddings.NewLimitedEmbedder(embedder, gate.Semaphore()),
		Factory:  factory,
		Gate:     gate,
	})
	if err != nil {
		catalog.Close()
		return nil, err
	}

	dispatcher, err := inference.New(cfg, registry, factory, gate)
	if err != nil {
		registry.Close()
		catalog.Close()
		return nil, err
	}

	return &services{catalog: catalog, registry: registry, dispatcher: dispatcher}, nil
}

func (s *services) Close() error {
	err := s.registry.Close()
	if cerr := s.catalog.Close(); err == nil {
		err = cerr
	}
	return err
}
