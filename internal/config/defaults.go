package config

import (
	"os"
	"runtime"
)

// DefaultConfigPath is used when neither --config nor CONFIG_PATH is set.
const DefaultConfigPath = "config.json"

// DefaultConfig returns a Config with sensible defaults. Summary, translation
// and context_qa models are filled in by applyDefaults after loading so that
// user-supplied lists replace them instead of merging into them.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   BackendHuggingFace,
			Model:      "sentence-transformers/all-MiniLM-L6-v2",
			Dimensions: 384,
		},
		Server: ServerConfig{
			Port:                  8080,
			AllowAllOrigins:       true,
			MaxUploadMB:           50,
			RequestTimeoutSeconds: 300,
		},
		DataDir: "data",
	}
}

// applyDefaults fills in the model tables left empty by the loaded file.
func (c *Config) applyDefaults() {
	if len(c.Summary) == 0 {
		c.Summary = map[string]Model{
			"default": {Model: "huggingface:facebook/bart-large-cnn"},
		}
	}
	if len(c.Translation) == 0 {
		c.Translation = []TranslationRoute{{
			SrcLang: "*",
			TgtLang: "*",
			Model:   "huggingface:facebook/nllb-200-distilled-600M",
			Kwargs:  Kwargs{"max_length": 200},
		}}
	}
	if c.ContextQA == nil {
		c.ContextQA = &Model{Model: "huggingface:deepset/roberta-base-squad2"}
	}
	if c.HFToken == "" {
		c.HFToken = os.Getenv("HF_TOKEN")
	}
}

// ResolvePath picks the config file: the explicit flag value, then the
// CONFIG_PATH environment variable, then DefaultConfigPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultConfigPath
}

// AuthEnabled reports whether bearer tokens are required.
func (c *Config) AuthEnabled() bool {
	return len(c.Auth) > 0
}

// InferenceConcurrency returns how many inference calls may run at once.
// With an accelerator (use_amx) calls are serialized unless overridden.
func (c *Config) InferenceConcurrency() int {
	if c.Server.MaxConcurrentInference > 0 {
		return c.Server.MaxConcurrentInference
	}
	if c.UseAMX {
		return 1
	}
	return runtime.NumCPU()
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given backend.
func APIKeyEnvVar(b Backend) string {
	switch b {
	case BackendOpenAI:
		return "OPENAI_API_KEY"
	case BackendHuggingFace:
		return "HF_TOKEN"
	default:
		return ""
	}
}
