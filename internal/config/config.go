// Package config loads the lorerag application configuration from YAML or
// TOML, applies defaults and LORERAG_* environment overrides, and validates
// the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"lorerag/internal/domain"
)

// SourceConfig points at the lorebook text file.
type SourceConfig struct {
	Path string `yaml:"path" toml:"path" validate:"required"`
}

// ChunkerConfig configures the word-window chunker.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size" toml:"chunk_size" validate:"gt=0"`
	Overlap   int `yaml:"overlap" toml:"overlap" validate:"gte=0,ltfield=ChunkSize"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" toml:"base_url" validate:"omitempty,url"`
	APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
	Model       string `yaml:"model" toml:"model"`
	Dimension   int    `yaml:"dimension" toml:"dimension" validate:"gte=0"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs" validate:"gte=0"`
	BatchSize   int    `yaml:"batch_size" toml:"batch_size" validate:"gte=0"`
	Concurrency int    `yaml:"concurrency" toml:"concurrency" validate:"gte=0"`
	MaxRetries  int    `yaml:"max_retries" toml:"max_retries" validate:"gte=0"`
}

// GeminiEmbedderConfig holds configuration for the Gemini embedder.
type GeminiEmbedderConfig struct {
	APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
	Model       string `yaml:"model" toml:"model"`
	Dimension   int    `yaml:"dimension" toml:"dimension" validate:"gte=0"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs" validate:"gte=0"`
}

// HashingEmbedderConfig configures the local feature-hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension" toml:"dimension" validate:"gte=0"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type    string                `yaml:"type" toml:"type" validate:"oneof=hashing openai gemini"`
	Hashing HashingEmbedderConfig `yaml:"hashing" toml:"hashing"`
	OpenAI  *OpenAIEmbedderConfig `yaml:"openai,omitempty" toml:"openai,omitempty"`
	Gemini  *GeminiEmbedderConfig `yaml:"gemini,omitempty" toml:"gemini,omitempty"`
}

// SnapshotConfig says where the corpus snapshot lives.
type SnapshotConfig struct {
	Dir string `yaml:"dir" toml:"dir" validate:"required"`
}

// RetrieverConfig configures queries.
type RetrieverConfig struct {
	TopK int `yaml:"top_k" toml:"top_k" validate:"gt=0"`
}

// LLMConfig selects and configures the answering model.
type LLMConfig struct {
	Type         string  `yaml:"type" toml:"type" validate:"oneof=gemini extractive"`
	Model        string  `yaml:"model" toml:"model"`
	APIKeyEnv    string  `yaml:"api_key_env" toml:"api_key_env"`
	Temperature  float32 `yaml:"temperature" toml:"temperature" validate:"gte=0,lte=2"`
	TimeoutSecs  int     `yaml:"timeout_secs" toml:"timeout_secs" validate:"gte=0"`
	MaxRetries   int     `yaml:"max_retries" toml:"max_retries" validate:"gte=0"`
	MaxSentences int     `yaml:"max_sentences" toml:"max_sentences" validate:"gte=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr               string   `yaml:"addr" toml:"addr" validate:"required"`
	CORSOrigins        []string `yaml:"cors_origins" toml:"cors_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" toml:"request_timeout_secs" validate:"gte=0"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=console json"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Source    SourceConfig    `yaml:"source" toml:"source"`
	Chunker   ChunkerConfig   `yaml:"chunker" toml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder" toml:"embedder"`
	Snapshot  SnapshotConfig  `yaml:"snapshot" toml:"snapshot"`
	Retriever RetrieverConfig `yaml:"retriever" toml:"retriever"`
	LLM       LLMConfig       `yaml:"llm" toml:"llm"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// Load reads a config from path, YAML or TOML by extension. A missing file
// yields defaults. Environment overrides are applied and the result is
// validated.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyConfigDefaults(cfg)
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./lorerag.yaml, ./lorerag.toml, then
// ~/.config/lorerag/config.yaml. If none exists, it writes defaults to the
// user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	for _, p := range []string{"lorerag.yaml", "lorerag.toml"} {
		if _, err := os.Stat(p); err == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, defaultConfig()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks field constraints and cross-field rules.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

func unmarshal(path string, data []byte, cfg *AppConfig) error {
	if isTOML(path) {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lorerag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Source:    SourceConfig{Path: "lorebook/raw_lore.txt"},
		Chunker:   ChunkerConfig{ChunkSize: 500, Overlap: 50},
		Embedder:  EmbedderConfig{Type: "hashing", Hashing: HashingEmbedderConfig{Dimension: 384}},
		Snapshot:  SnapshotConfig{Dir: "vectorstore"},
		Retriever: RetrieverConfig{TopK: 3},
		LLM: LLMConfig{
			Type:         "gemini",
			Model:        "gemini-2.5-flash",
			APIKeyEnv:    "GEMINI_API_KEY",
			Temperature:  0.2,
			TimeoutSecs:  60,
			MaxRetries:   2,
			MaxSentences: 2,
		},
		Server: ServerConfig{
			Addr:               ":8000",
			CORSOrigins:        []string{"http://localhost:3000"},
			RequestTimeoutSecs: 60,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.Dimension == 0 && o.Model == "text-embedding-3-small" {
			o.Dimension = 1536
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 32
		}
		if o.Concurrency == 0 {
			o.Concurrency = 4
		}
		if o.MaxRetries == 0 {
			o.MaxRetries = 3
		}
	}
	if cfg.Embedder.Type == "gemini" {
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{}
		}
		g := cfg.Embedder.Gemini
		if g.APIKeyEnv == "" {
			g.APIKeyEnv = "GEMINI_API_KEY"
		}
		if g.Model == "" {
			g.Model = "gemini-embedding-001"
		}
		if g.Dimension == 0 {
			g.Dimension = 768
		}
		if g.TimeoutSecs == 0 {
			g.TimeoutSecs = 30
		}
	}
	if cfg.LLM.Type == "" {
		cfg.LLM.Type = "gemini"
	}
	if cfg.LLM.Type == "gemini" {
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "gemini-2.5-flash"
		}
		if cfg.LLM.APIKeyEnv == "" {
			cfg.LLM.APIKeyEnv = "GEMINI_API_KEY"
		}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// applyEnv overrides selected fields from LORERAG_* variables.
func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidConfiguration, key, v)
		}
		*dst = n
		return nil
	}

	str("LORERAG_SOURCE", &cfg.Source.Path)
	str("LORERAG_SNAPSHOT_DIR", &cfg.Snapshot.Dir)
	str("LORERAG_EMBEDDER", &cfg.Embedder.Type)
	str("LORERAG_LLM", &cfg.LLM.Type)
	str("LORERAG_LLM_MODEL", &cfg.LLM.Model)
	str("LORERAG_ADDR", &cfg.Server.Addr)
	str("LORERAG_LOG_LEVEL", &cfg.Logging.Level)
	str("LORERAG_LOG_FORMAT", &cfg.Logging.Format)
	if v, ok := lookup("LORERAG_CORS_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	for key, dst := range map[string]*int{
		"LORERAG_CHUNK_SIZE": &cfg.Chunker.ChunkSize,
		"LORERAG_OVERLAP":    &cfg.Chunker.Overlap,
		"LORERAG_TOP_K":      &cfg.Retriever.TopK,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	// A type switched by env still needs its sub-config defaults.
	applyConfigDefaults(cfg)
	return nil
}
