package llm

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/ai-runner/internal/config"
	"github.com/ziadkadry99/ai-runner/internal/hfapi"
)

// Options carries the credentials and endpoints shared by every provider.
type Options struct {
	HFToken       string
	HFBaseURL     string
	OpenAIBaseURL string
	OllamaHost    string
}

// OptionsFromEnv builds Options from cfg and the conventional environment
// variables.
func OptionsFromEnv(cfg *config.Config) Options {
	return Options{
		HFToken:       cfg.HFToken,
		HFBaseURL:     os.Getenv("HF_INFERENCE_URL"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OllamaHost:    os.Getenv("OLLAMA_HOST"),
	}
}

// NewProvider creates the provider for a "<backend>:<model>" identifier.
// seq2seq only matters for Hugging Face models.
func NewProvider(modelID string, seq2seq bool, opts Options) (Provider, error) {
	backend, model, err := config.ParseModel(modelID)
	if err != nil {
		return nil, err
	}

	switch backend {
	case config.BackendHuggingFace:
		return NewHuggingFaceProvider(hfapi.New(opts.HFToken, opts.HFBaseURL), model, seq2seq), nil

	case config.BackendOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.BackendOpenAI))
		if apiKey == "" && opts.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model, opts.OpenAIBaseURL), nil

	case config.BackendOllama:
		host := opts.OllamaHost
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}
