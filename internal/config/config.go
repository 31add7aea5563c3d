package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: AIRUNNER_SERVER__PORT -> server.port.
const EnvPrefix = "AIRUNNER_"

// Load reads configuration from the given JSON (or YAML) file, then overlays
// environment variable overrides (AIRUNNER_*). A missing file yields defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return yaml.Parser()
	default:
		return kjson.Parser()
	}
}

// Save writes the configuration to path, as YAML for .yml/.yaml and JSON otherwise.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		data, err = yamlv3.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validBackends = map[Backend]bool{
	BackendHuggingFace: true,
	BackendOpenAI:      true,
	BackendOllama:      true,
}

// validBaseTasks is the set of tasks a documentary base pipeline can run.
var validBaseTasks = map[Task]bool{
	TaskTextGeneration:      true,
	TaskText2TextGeneration: true,
	TaskQuestionAnswering:   true,
}

// ParseModel splits a "<backend>:<model>" identifier. A bare identifier
// such as "google/flan-t5-base" refers to a Hugging Face model.
func ParseModel(id string) (Backend, string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", fmt.Errorf("model is required")
	}
	backend, name, found := strings.Cut(id, ":")
	if !found {
		return BackendHuggingFace, id, nil
	}
	b := Backend(strings.ToLower(backend))
	if !validBackends[b] {
		return "", "", fmt.Errorf("invalid backend %q in model %q: must be one of huggingface, openai, ollama", backend, id)
	}
	if name == "" {
		return "", "", fmt.Errorf("model name missing in %q", id)
	}
	return b, name, nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	for i, a := range c.Auth {
		if a.JWKSURI == "" {
			return fmt.Errorf("auth[%d]: jwks_uri is required", i)
		}
	}

	seen := make(map[string]bool, len(c.DocumentaryBases))
	for i, b := range c.DocumentaryBases {
		if b.Name == "" {
			return fmt.Errorf("documentary_bases[%d]: name is required", i)
		}
		if seen[b.Name] {
			return fmt.Errorf("documentary_bases[%d]: duplicate name %q", i, b.Name)
		}
		seen[b.Name] = true
		if b.PersistPath == "" {
			return fmt.Errorf("documentary base %q: persist_path is required", b.Name)
		}
		if _, _, err := ParseModel(b.Model); err != nil {
			return fmt.Errorf("documentary base %q: %w", b.Name, err)
		}
		if !validBaseTasks[b.Task] {
			return fmt.Errorf("documentary base %q: invalid task %q: must be one of text-generation, text2text-generation, question-answering", b.Name, b.Task)
		}
	}

	if len(c.Summary) > 0 {
		if _, ok := c.Summary["default"]; !ok {
			return fmt.Errorf("summary: a \"default\" entry is required")
		}
		for lang, m := range c.Summary {
			if _, _, err := ParseModel(m.Model); err != nil {
				return fmt.Errorf("summary[%s]: %w", lang, err)
			}
		}
	}

	for i, r := range c.Translation {
		if r.SrcLang == "" || r.TgtLang == "" {
			return fmt.Errorf("translation[%d]: src_lang and tgt_lang are required", i)
		}
		if _, _, err := ParseModel(r.Model); err != nil {
			return fmt.Errorf("translation[%d]: %w", i, err)
		}
	}

	if c.ContextQA != nil {
		if _, _, err := ParseModel(c.ContextQA.Model); err != nil {
			return fmt.Errorf("context_qa: %w", err)
		}
	}

	if c.Embedding.Provider != "" && !validBackends[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding model is required")
	}

	if c.Server.Port < 0 {
		return fmt.Errorf("server port must be non-negative")
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("max_upload_mb must be non-negative")
	}
	if c.Server.MaxConcurrentInference < 0 {
		return fmt.Errorf("max_concurrent_inference must be non-negative")
	}
	if c.Server.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be non-negative")
	}

	return nil
}

// Base returns the definition of the named documentary base.
func (c *Config) Base(name string) (DocumentaryBase, bool) {
	for _, b := range c.DocumentaryBases {
		if b.Name == name {
			return b, true
		}
	}
	return DocumentaryBase{}, false
}
