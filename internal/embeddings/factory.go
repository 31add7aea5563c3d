package embeddings

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/ai-runner/internal/config"
	"github.com/ziadkadry99/ai-runner/internal/hfapi"
)

// New builds the embedder described by cfg.Embedding.
func New(cfg *config.Config) (Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case config.BackendHuggingFace, "":
		return NewHuggingFaceEmbedder(hfapi.New(cfg.HFToken, ec.BaseURL), ec.Model, ec.Dimensions), nil
	case config.BackendOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.BackendOpenAI))
		if apiKey == "" && ec.BaseURL == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return NewOpenAIEmbedder(apiKey, ec.Model, ec.Dimensions, ec.BaseURL), nil
	case config.BackendOllama:
		return NewOllamaEmbedder(ec.Model, ec.Dimensions, ec.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ec.Provider)
	}
}
