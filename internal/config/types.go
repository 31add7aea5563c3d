package config

// Backend identifies the service that runs a model.
type Backend string

const (
	BackendHuggingFace Backend = "huggingface"
	BackendOpenAI      Backend = "openai"
	BackendOllama      Backend = "ollama"
)

// Task identifies what a documentary base pipeline does with retrieved chunks.
type Task string

const (
	TaskTextGeneration      Task = "text-generation"
	TaskText2TextGeneration Task = "text2text-generation"
	TaskQuestionAnswering   Task = "question-answering"
)

// Config is the top-level service configuration, usually config.json.
type Config struct {
	Auth             []AuthProvider     `json:"auth,omitempty" yaml:"auth,omitempty" koanf:"auth"`
	UseAMX           bool               `json:"use_amx" yaml:"use_amx" koanf:"use_amx"`
	HFToken          string             `json:"hf_token,omitempty" yaml:"hf_token,omitempty" koanf:"hf_token"`
	DocumentaryBases []DocumentaryBase  `json:"documentary_bases" yaml:"documentary_bases" koanf:"documentary_bases"`
	Summary          map[string]Model   `json:"summary,omitempty" yaml:"summary,omitempty" koanf:"summary"`
	Translation      []TranslationRoute `json:"translation,omitempty" yaml:"translation,omitempty" koanf:"translation"`
	ContextQA        *Model             `json:"context_qa,omitempty" yaml:"context_qa,omitempty" koanf:"context_qa"`
	Embedding        EmbeddingConfig    `json:"embedding" yaml:"embedding" koanf:"embedding"`
	Server           ServerConfig       `json:"server" yaml:"server" koanf:"server"`
	DataDir          string             `json:"data_dir" yaml:"data_dir" koanf:"data_dir"`
}

// AuthProvider is an OIDC client whose tokens are accepted.
type AuthProvider struct {
	ClientID string `json:"client_id" yaml:"client_id" koanf:"client_id"`
	JWKSURI  string `json:"jwks_uri" yaml:"jwks_uri" koanf:"jwks_uri"`
}

// DocumentaryBase describes one named RAG collection.
type DocumentaryBase struct {
	Name        string `json:"name" yaml:"name" koanf:"name"`
	PersistPath string `json:"persist_path" yaml:"persist_path" koanf:"persist_path"`
	Model       string `json:"model" yaml:"model" koanf:"model"`
	Task        Task   `json:"task" yaml:"task" koanf:"task"`
	Kwargs      Kwargs `json:"kwargs,omitempty" yaml:"kwargs,omitempty" koanf:"kwargs"`
}

// Model binds a model identifier to its generation arguments.
type Model struct {
	Model  string `json:"model" yaml:"model" koanf:"model"`
	Kwargs Kwargs `json:"kwargs,omitempty" yaml:"kwargs,omitempty" koanf:"kwargs"`
}

// TranslationRoute serves one language pair. "*" matches any supported language.
type TranslationRoute struct {
	SrcLang string `json:"src_lang" yaml:"src_lang" koanf:"src_lang"`
	TgtLang string `json:"tgt_lang" yaml:"tgt_lang" koanf:"tgt_lang"`
	Model   string `json:"model" yaml:"model" koanf:"model"`
	Kwargs  Kwargs `json:"kwargs,omitempty" yaml:"kwargs,omitempty" koanf:"kwargs"`
}

// EmbeddingConfig selects the embedding model used by every documentary base.
type EmbeddingConfig struct {
	Provider   Backend `json:"provider" yaml:"provider" koanf:"provider"`
	Model      string  `json:"model" yaml:"model" koanf:"model"`
	BaseURL    string  `json:"base_url,omitempty" yaml:"base_url,omitempty" koanf:"base_url"`
	Dimensions int     `json:"dimensions,omitempty" yaml:"dimensions,omitempty" koanf:"dimensions"`
}

// ServerConfig holds HTTP surface settings.
type ServerConfig struct {
	Port                   int  `json:"port" yaml:"port" koanf:"port"`
	AllowAllOrigins        bool `json:"allow_all_origins" yaml:"allow_all_origins" koanf:"allow_all_origins"`
	MaxUploadMB            int  `json:"max_upload_mb" yaml:"max_upload_mb" koanf:"max_upload_mb"`
	RequestTimeoutSeconds  int  `json:"request_timeout_seconds" yaml:"request_timeout_seconds" koanf:"request_timeout_seconds"`
	MaxConcurrentInference int  `json:"max_concurrent_inference" yaml:"max_concurrent_inference" koanf:"max_concurrent_inference"`
	RequestsPerMinute      int  `json:"requests_per_minute" yaml:"requests_per_minute" koanf:"requests_per_minute"`
}
