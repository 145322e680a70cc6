// Package config handles Vitala configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration errors. These are fatal at startup:
// the process must refuse to serve rather than run half-configured.
var ErrInvalid = errors.New("invalid configuration")

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/vitala/config.yaml, /etc/vitala/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "vitala", "config.yaml"))
	}

	paths = append(paths, "/etc/vitala/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Vitala configuration.
type Config struct {
	Listen     ListenConfig     `yaml:"listen"`
	LLM        LLMConfig        `yaml:"llm"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	RAG        RAGConfig        `yaml:"rag"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	DataDir    string           `yaml:"data_dir"`
	LogLevel   string           `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`    // Default: 8081
}

// LLMConfig defines the chat-completion backend settings.
type LLMConfig struct {
	// BaseURL is an OpenAI-compatible API root (e.g., "https://api.openai.com").
	// The client appends /v1/chat/completions.
	BaseURL string `yaml:"base_url"`
	// APIKey authenticates against the backend. May also be supplied via
	// the OPENAI_API_KEY environment variable.
	APIKey string `yaml:"api_key"`
	// Model is the chat model identifier (default: gpt-4o-mini).
	Model string `yaml:"model"`
	// TimeoutSec bounds a single backend call (default 60).
	TimeoutSec int `yaml:"timeout_sec"`
}

// EmbeddingsConfig defines embedding generation settings. The same
// backend and model must serve both knowledge-base construction and
// live query embedding, or similarity scores are meaningless.
type EmbeddingsConfig struct {
	Model   string `yaml:"model"`    // Embedding model (default: text-embedding-3-small)
	BaseURL string `yaml:"base_url"` // Defaults to llm.base_url
	APIKey  string `yaml:"api_key"`  // Defaults to llm.api_key
}

// RAGConfig defines retrieval-augmented generation settings.
type RAGConfig struct {
	Enabled bool `yaml:"enabled"`
	// TopK is how many passages to retrieve per query (default 3).
	TopK int `yaml:"top_k"`
	// KnowledgePath is a file or directory of .txt/.md/.html passages
	// embedded once at startup.
	KnowledgePath string `yaml:"knowledge_path"`
}

// MQTTConfig defines the optional availability/stats publisher.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"` // e.g. "mqtt://broker:1883"
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// TopicPrefix is prepended to all published topics (default "vitala").
	TopicPrefix string `yaml:"topic_prefix"`
}

// Defaults used when the config file leaves fields unset.
const (
	DefaultPort           = 8081
	DefaultBaseURL        = "https://api.openai.com"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultTimeoutSec     = 60
	DefaultTopK           = 3
)

// Load reads and parses a config file, applying defaults and environment
// fallbacks. It does not validate; call Validate before serving.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = DefaultPort
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = DefaultBaseURL
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultChatModel
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = DefaultTimeoutSec
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = DefaultEmbeddingModel
	}
	if c.Embeddings.BaseURL == "" {
		c.Embeddings.BaseURL = c.LLM.BaseURL
	}
	if c.Embeddings.APIKey == "" {
		c.Embeddings.APIKey = c.LLM.APIKey
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = DefaultTopK
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "vitala"
	}
}

// Validate checks the configuration for errors that must prevent startup.
// All returned errors wrap ErrInvalid.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: llm.api_key is required (or set OPENAI_API_KEY)", ErrInvalid)
	}
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("%w: listen.port %d out of range", ErrInvalid, c.Listen.Port)
	}
	if c.RAG.Enabled {
		if c.RAG.TopK < 1 {
			return fmt.Errorf("%w: rag.top_k must be >= 1, got %d", ErrInvalid, c.RAG.TopK)
		}
		if c.RAG.KnowledgePath == "" {
			return fmt.Errorf("%w: rag.enabled requires rag.knowledge_path", ErrInvalid)
		}
		if _, err := os.Stat(c.RAG.KnowledgePath); err != nil {
			return fmt.Errorf("%w: rag.knowledge_path: %v", ErrInvalid, err)
		}
	}
	if c.MQTT.Enabled && c.MQTT.URL == "" {
		return fmt.Errorf("%w: mqtt.enabled requires mqtt.url", ErrInvalid)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
