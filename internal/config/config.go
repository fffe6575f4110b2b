package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFileName is looked up in the working directory when no
// explicit --config path is given.
const DefaultConfigFileName = "docdex.yaml"

// Config is the complete docdex configuration. Values load in three
// layers: built-in defaults, the YAML config file, then environment
// variable overrides (highest priority).
type Config struct {
	// DocumentsFolder is the folder scanned during indexing.
	DocumentsFolder string `yaml:"documents_folder"`
	// DatabasePath is the SQLite database location.
	DatabasePath string `yaml:"database_path"`

	Logging   LoggingConfig   `yaml:"logging"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// LoggingConfig configures the structured log output.
type LoggingConfig struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string `yaml:"level"`
	// FilePath is the log file location. Empty selects the default
	// path under the data directory.
	FilePath string `yaml:"file_path"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// APIKey is never read from the config file, only from the
	// OPENAI_API_KEY environment variable.
	APIKey string `yaml:"-"`
	// BaseURL overrides the provider endpoint for OpenAI-compatible
	// servers. Empty uses the provider default.
	BaseURL string `yaml:"base_url"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions is the embedding vector width.
	Dimensions int `yaml:"dimensions"`
	// BatchSize is the number of texts per provider request.
	BatchSize int `yaml:"batch_size"`
	// RequestsPerSecond caps the client-side request rate.
	// Zero or negative disables the limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// UnitPrice is the provider price in dollars per million tokens,
	// used for dry-run cost estimates.
	UnitPrice float64 `yaml:"unit_price"`
}

// SearchConfig configures hybrid score blending.
// LexicalWeight and SemanticWeight should sum to 1.0.
type SearchConfig struct {
	LexicalWeight  float64 `yaml:"lexical_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	// BM25Divisor rescales raw BM25 scores into the blend range.
	BM25Divisor float64 `yaml:"bm25_divisor"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Debounce is the quiet period after the last filesystem event
	// before a resync runs, as a Go duration string.
	Debounce string `yaml:"debounce"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DocumentsFolder: "documents",
		DatabasePath:    filepath.Join(dataDir(), "docdex.db"),
		Logging: LoggingConfig{
			Level: "info",
		},
		Embedding: EmbeddingConfig{
			Model:             "text-embedding-3-small",
			Dimensions:        1536,
			BatchSize:         100,
			RequestsPerSecond: 0,
			UnitPrice:         0.02,
		},
		Search: SearchConfig{
			LexicalWeight:  0.3,
			SemanticWeight: 0.7,
			BM25Divisor:    10,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// Load reads the configuration from path, layering file values over the
// defaults and environment overrides over both. An empty path falls
// back to DefaultConfigFileName in the working directory; a missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultConfigFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file is fine, run on defaults.
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DOCDEX_FOLDER"); v != "" {
		cfg.DocumentsFolder = v
	}
	if v := os.Getenv("DOCDEX_DB"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("DOCDEX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("DOCDEX_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("DOCDEX_EMBED_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimensions = n
		}
	}
	if v := os.Getenv("DOCDEX_LEXICAL_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.LexicalWeight = f
		}
	}
	if v := os.Getenv("DOCDEX_SEMANTIC_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.SemanticWeight = f
		}
	}
}

// Validate checks the configuration for values that would break at
// runtime rather than fail fast here.
func (c Config) Validate() error {
	if c.DocumentsFolder == "" {
		return errors.New("documents_folder must not be empty")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path must not be empty")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Search.LexicalWeight < 0 || c.Search.SemanticWeight < 0 {
		return errors.New("search weights must not be negative")
	}
	if c.Search.BM25Divisor <= 0 {
		return fmt.Errorf("bm25_divisor must be positive, got %g", c.Search.BM25Divisor)
	}
	if _, err := c.Watch.DebounceDuration(); err != nil {
		return fmt.Errorf("watch debounce: %w", err)
	}
	return nil
}

// LockPath is the flock file guarding sync runs against concurrent
// writers on the same database.
func (c Config) LockPath() string {
	return c.DatabasePath + ".lock"
}

// LogFilePath resolves the log file location, defaulting next to the
// database when unset.
func (c Config) LogFilePath() string {
	if c.Logging.FilePath != "" {
		return c.Logging.FilePath
	}
	return filepath.Join(dataDir(), "logs", "docdex.log")
}

// DebounceDuration parses the debounce setting.
func (w WatchConfig) DebounceDuration() (time.Duration, error) {
	if w.Debounce == "" {
		return 500 * time.Millisecond, nil
	}
	return time.ParseDuration(w.Debounce)
}

// dataDir is the per-user docdex data directory.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docdex"
	}
	return filepath.Join(home, ".docdex")
}
