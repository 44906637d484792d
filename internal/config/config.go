package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/codec"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/gate"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/signals"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// #region config

// Config is the process configuration. Values come from defaults, then an
// optional YAML file, then environment variables.
type Config struct {
	DBPath    string `yaml:"db_path"`
	Listen    string `yaml:"listen"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	CacheSize int    `yaml:"cache_size"` // sessions held in memory

	Codec        codec.Config           `yaml:"codec"`
	Orchestrator orchestrator.Config    `yaml:"orchestrator"`
	Gate         gate.GateConfig        `yaml:"gate"` // tuned defaults, pending product review
	Signals      signals.ProducerConfig `yaml:"signals"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:    "roleplay.db",
		Listen:    ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		CacheSize: 256,
		Codec: codec.Config{
			Provider:  "grpc",
			Addr:      "localhost:50051",
			MaxTokens: 256,
		},
		Orchestrator: orchestrator.DefaultConfig(),
		Gate:         gate.DefaultGateConfig(),
		Signals:      signals.DefaultProducerConfig(),
	}
}

// #endregion config

// #region load

// Load reads .env (if present), the YAML file at path (if non-empty) and the
// environment, then validates the result.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.DBPath = envOr("ROLEPLAY_DB", cfg.DBPath)
	cfg.Listen = envOr("ROLEPLAY_LISTEN", cfg.Listen)
	cfg.LogLevel = envOr("ROLEPLAY_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOr("ROLEPLAY_LOG_FORMAT", cfg.LogFormat)
	cfg.Codec.Provider = envOr("ROLEPLAY_PROVIDER", cfg.Codec.Provider)
	cfg.Codec.Model = envOr("ROLEPLAY_MODEL", cfg.Codec.Model)
	cfg.Codec.Addr = envOr("CODEC_ADDR", cfg.Codec.Addr)

	switch strings.ToLower(cfg.Codec.Provider) {
	case "anthropic":
		cfg.Codec.APIKey = envOr("ANTHROPIC_API_KEY", cfg.Codec.APIKey)
	case "gemini":
		cfg.Codec.APIKey = envOr("GEMINI_API_KEY", cfg.Codec.APIKey)
	}

	if v := os.Getenv("ROLEPLAY_GENERATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: ROLEPLAY_GENERATION_TIMEOUT: %v", ErrInvalid, err)
		}
		cfg.Orchestrator.GenerationTimeout = d
	}
	if v := os.Getenv("ROLEPLAY_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: ROLEPLAY_CACHE_SIZE: %v", ErrInvalid, err)
		}
		cfg.CacheSize = n
	}
	return nil
}

// #endregion load

// #region validate

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.DBPath == "" {
		problems = append(problems, "db_path is empty")
	}
	if c.CacheSize <= 0 {
		problems = append(problems, "cache_size must be positive")
	}
	if c.Orchestrator.GenerationTimeout <= 0 {
		problems = append(problems, "orchestrator.generation_timeout must be positive")
	}
	switch strings.ToLower(c.Codec.Provider) {
	case "grpc", "":
		if c.Codec.Addr == "" {
			problems = append(problems, "codec.addr is required for the grpc provider")
		}
	case "anthropic", "gemini", "echo":
	default:
		problems = append(problems, fmt.Sprintf("unknown codec.provider %q", c.Codec.Provider))
	}
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"gate.base_low", c.Gate.BaseLow},
		{"gate.base_medium", c.Gate.BaseMedium},
		{"gate.base_high", c.Gate.BaseHigh},
	} {
		if p.value < 0 || p.value > 1 {
			problems = append(problems, fmt.Sprintf("%s must be within [0,1]", p.name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// #endregion validate

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
