package studyquiz

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
)

// Config holds all server configuration
type Config struct {
	Listen     string           `yaml:"listen"`
	PublicDir  string           `yaml:"public_dir"`
	Model      ModelConfig      `yaml:"model"`
	Cache      CacheConfig      `yaml:"cache"`
	Validation ValidationConfig `yaml:"validation"`
	Session    SessionConfig    `yaml:"session"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// ModelConfig selects the upstream model. Timeout bounds a question
// generation shared by concurrent requests.
type ModelConfig struct {
	Name        string        `yaml:"name"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// CacheConfig selects and tunes the question cache. TTL is ignored by the
// memory backend.
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	TTL        time.Duration `yaml:"ttl"`
	SQLitePath string        `yaml:"sqlite_path"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig is used when Cache.Backend is "redis"
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ValidationConfig controls schema checks on model output
type ValidationConfig struct {
	Strict bool `yaml:"strict"`
}

// SessionConfig controls the study progress cookie
type SessionConfig struct {
	Name   string `yaml:"name"`
	Secret string `yaml:"secret"`
}

// ServerConfig holds HTTP server settings. A zero RequestTimeout leaves
// requests unbounded.
type ServerConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// LogConfig controls logging. TranscriptDir enables per-request model transcripts.
type LogConfig struct {
	Level         string `yaml:"level"`
	TranscriptDir string `yaml:"transcript_dir"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Listen:    ":3000",
		PublicDir: "public",
		Model: ModelConfig{
			Name:    DefaultModelName,
			BaseURL: DefaultModelBaseURL,
			Timeout: DefaultGenerationTimeout,
		},
		Cache: CacheConfig{
			Backend:    CacheBackendMemory,
			SQLitePath: "studyquiz.db",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Session: SessionConfig{
			Name: "studyquiz-progress",
		},
		Server: ServerConfig{
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. Defaults come first, then the YAML file at
// path (with environment variables expanded) if it is non-empty, then the
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from the process environment
func (c *Config) ApplyEnv() {
	c.Model.APIKey = envOr("GEMINI_API_KEY", c.Model.APIKey)
	if port := os.Getenv("PORT"); port != "" {
		c.Listen = ":" + strings.TrimPrefix(port, ":")
	}
	c.Log.Level = envOr("STUDYQUIZ_LOG", c.Log.Level)
	c.Session.Secret = envOr("SESSION_SECRET", c.Session.Secret)
	c.Cache.Backend = envOr("STUDYQUIZ_CACHE", c.Cache.Backend)
}

// Validate reports configuration the server cannot start with
func (c *Config) Validate() error {
	if c.Model.APIKey == "" {
		return errors.New("GEMINI_API_KEY is missing: set it in the environment, a .env file or model.api_key")
	}
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendSQLite, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
