package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Verify    VerifyConfig    `yaml:"verify" mapstructure:"verify"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Fiscal    FiscalConfig    `yaml:"fiscal" mapstructure:"fiscal"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// FetchConfig configures the SEC document fetcher.
type FetchConfig struct {
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit     float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst         int           `yaml:"burst" mapstructure:"burst"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffBase   time.Duration `yaml:"backoff_base" mapstructure:"backoff_base"`
	BackoffFactor float64       `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	BackoffJitter float64       `yaml:"backoff_jitter" mapstructure:"backoff_jitter"`
	CacheDir      string        `yaml:"cache_dir" mapstructure:"cache_dir"`
}

// PipelineConfig configures filing processing.
type PipelineConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	FilingDeadline time.Duration `yaml:"filing_deadline" mapstructure:"filing_deadline"`
	StrictFiscal   bool          `yaml:"strict_fiscal" mapstructure:"strict_fiscal"`
	RawDump        bool          `yaml:"raw_dump" mapstructure:"raw_dump"`
}

// VerifyConfig configures round-trip completeness verification.
type VerifyConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// StorageConfig configures artifact publication.
type StorageConfig struct {
	BucketDir       string `yaml:"bucket_dir" mapstructure:"bucket_dir"`
	MinArtifactSize int64  `yaml:"min_artifact_size" mapstructure:"min_artifact_size"`
}

// StoreConfig configures the filing metadata database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// FiscalConfig configures the fiscal period registry.
type FiscalConfig struct {
	RegistryFile string `yaml:"registry_file" mapstructure:"registry_file"`
}

// AnthropicConfig holds Anthropic API settings for the query command.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EDGARLLM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("fetch.rate_limit", 10.0)
	v.SetDefault("fetch.burst", 10)
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.max_retries", 5)
	v.SetDefault("fetch.backoff_base", "1s")
	v.SetDefault("fetch.backoff_factor", 2.0)
	v.SetDefault("fetch.backoff_jitter", 0.2)
	v.SetDefault("fetch.cache_dir", ".edgar-cache")
	v.SetDefault("pipeline.max_concurrency", 4)
	v.SetDefault("pipeline.filing_deadline", "10m")
	v.SetDefault("pipeline.strict_fiscal", false)
	v.SetDefault("pipeline.raw_dump", true)
	v.SetDefault("verify.threshold", 0.995)
	v.SetDefault("storage.bucket_dir", "./artifacts")
	v.SetDefault("storage.min_artifact_size", 256)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "edgar-llm.db")
	v.SetDefault("fiscal.registry_file", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
