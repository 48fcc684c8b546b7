// Package config loads and validates the reporter's configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/paudley/git-ai-reporter/internal/reporter/llm"
)

// Sentinel validation errors.
var (
	ErrInvalidConcurrency     = errors.New("concurrency bound must be positive")
	ErrInvalidChunkOverlap    = errors.New("chunk_overlap must be in [0, 1)")
	ErrInvalidTemperature     = errors.New("temperature must be in [0, 2]")
	ErrMissingTierModel       = errors.New("tier model name is required")
	ErrInvalidRetries         = errors.New("retries.max must be positive")
	ErrInvalidTimeout         = errors.New("timeout_ms must be positive")
	ErrMissingCacheDir        = errors.New("cache_dir is required")
)

// Default configuration values (§6).
const (
	defaultFastModel     = "gpt-4o-mini"
	defaultBalancedModel = "gpt-4o"
	defaultQualityModel  = "gpt-4o"

	defaultMaxTokensFast     = 2048
	defaultMaxTokensBalanced = 4096
	defaultMaxTokensQuality  = 8192

	defaultTemperature = 0.2

	defaultRatePerMinFast     = 60.0
	defaultRatePerMinBalanced = 30.0
	defaultRatePerMinQuality  = 10.0

	defaultConcurrencyT1 = 8
	defaultConcurrencyT2 = 4
	defaultConcurrencyT3 = 1

	defaultChunkOverlap         = 0.1
	defaultPromptTemplateVer    = "v1"
	defaultRetriesMax           = 5
	defaultRetriesBaseMS        = 1000
	defaultRetriesMaxMS         = 30000
	defaultTimeoutMS            = 300000
	defaultCacheDir             = ".reporter-cache"
	maxTemperature              = 2.0
)

// TierModels names the model string used for each tier.
type TierModels struct {
	Fast     string `mapstructure:"fast"`
	Balanced string `mapstructure:"balanced"`
	Quality  string `mapstructure:"quality"`
}

// TierTokens caps per-tier output tokens.
type TierTokens struct {
	Fast     int `mapstructure:"fast"`
	Balanced int `mapstructure:"balanced"`
	Quality  int `mapstructure:"quality"`
}

// TierRates bounds per-tier request rate (tokens/min in the §6 sense, used
// directly as the LLMGateway's token-bucket rate).
type TierRates struct {
	Fast     float64 `mapstructure:"fast"`
	Balanced float64 `mapstructure:"balanced"`
	Quality  float64 `mapstructure:"quality"`
}

// Concurrency bounds the orchestrator's three fan-out points.
type Concurrency struct {
	T1 int `mapstructure:"t1"`
	T2 int `mapstructure:"t2"`
	T3 int `mapstructure:"t3"`
}

// Retries controls the LLMGateway's backoff policy.
type Retries struct {
	Max    uint `mapstructure:"max"`
	BaseMS int  `mapstructure:"base_ms"`
	MaxMS  int  `mapstructure:"max_ms"`
}

// Config holds all configuration for the reporter pipeline (§6).
type Config struct {
	TierModels            TierModels  `mapstructure:"tier_models"`
	MaxTokens             TierTokens  `mapstructure:"max_tokens"`
	Temperature           float64     `mapstructure:"temperature"`
	RatePerMin            TierRates   `mapstructure:"rate_per_min"`
	Concurrency           Concurrency `mapstructure:"concurrency"`
	TrivialPrefixes       []string    `mapstructure:"trivial_prefixes"`
	TrivialPathPatterns   []string    `mapstructure:"trivial_path_patterns"`
	PromptTemplateVersion string      `mapstructure:"prompt_template_version"`
	ChunkOverlap          float64     `mapstructure:"chunk_overlap"`
	Retries               Retries     `mapstructure:"retries"`
	TimeoutMS             int         `mapstructure:"timeout_ms"`
	CacheDir              string      `mapstructure:"cache_dir"`
}

// Load reads configuration from configPath (or the default search path when
// empty) and REPORTER_-prefixed environment variables, applies defaults,
// and validates the result.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("reporter")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/git-ai-reporter")
	}

	viperCfg.SetEnvPrefix("REPORTER")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if readErr := viperCfg.ReadInConfig(); readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("config: read config file: %w", readErr)
		}
	}

	var cfg Config

	if err := viperCfg.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}

	return &cfg, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("tier_models.fast", defaultFastModel)
	viperCfg.SetDefault("tier_models.balanced", defaultBalancedModel)
	viperCfg.SetDefault("tier_models.quality", defaultQualityModel)

	viperCfg.SetDefault("max_tokens.fast", defaultMaxTokensFast)
	viperCfg.SetDefault("max_tokens.balanced", defaultMaxTokensBalanced)
	viperCfg.SetDefault("max_tokens.quality", defaultMaxTokensQuality)

	viperCfg.SetDefault("temperature", defaultTemperature)

	viperCfg.SetDefault("rate_per_min.fast", defaultRatePerMinFast)
	viperCfg.SetDefault("rate_per_min.balanced", defaultRatePerMinBalanced)
	viperCfg.SetDefault("rate_per_min.quality", defaultRatePerMinQuality)

	viperCfg.SetDefault("concurrency.t1", defaultConcurrencyT1)
	viperCfg.SetDefault("concurrency.t2", defaultConcurrencyT2)
	viperCfg.SetDefault("concurrency.t3", defaultConcurrencyT3)

	viperCfg.SetDefault("trivial_prefixes", []string{"style", "chore"})
	viperCfg.SetDefault("trivial_path_patterns", []string{})

	viperCfg.SetDefault("prompt_template_version", defaultPromptTemplateVer)
	viperCfg.SetDefault("chunk_overlap", defaultChunkOverlap)

	viperCfg.SetDefault("retries.max", defaultRetriesMax)
	viperCfg.SetDefault("retries.base_ms", defaultRetriesBaseMS)
	viperCfg.SetDefault("retries.max_ms", defaultRetriesMaxMS)

	viperCfg.SetDefault("timeout_ms", defaultTimeoutMS)
	viperCfg.SetDefault("cache_dir", defaultCacheDir)
}

// Validate checks invariants the zero Config and a malformed file cannot
// satisfy on their own.
func (c *Config) Validate() error {
	if c.TierModels.Fast == "" || c.TierModels.Balanced == "" || c.TierModels.Quality == "" {
		return ErrMissingTierModel
	}

	if c.Concurrency.T1 <= 0 || c.Concurrency.T2 <= 0 || c.Concurrency.T3 <= 0 {
		return ErrInvalidConcurrency
	}

	if c.ChunkOverlap < 0 || c.ChunkOverlap >= 1 {
		return ErrInvalidChunkOverlap
	}

	if c.Temperature < 0 || c.Temperature > maxTemperature {
		return ErrInvalidTemperature
	}

	if c.Retries.Max == 0 {
		return ErrInvalidRetries
	}

	if c.TimeoutMS <= 0 {
		return ErrInvalidTimeout
	}

	if c.CacheDir == "" {
		return ErrMissingCacheDir
	}

	return nil
}

// GatewayConfig projects Config onto the shape llm.NewGateway expects.
func (c *Config) GatewayConfig() llm.Config {
	return llm.Config{
		Models: map[llm.Tier]llm.ModelConfig{
			llm.FAST:     {Model: c.TierModels.Fast, MaxOutputTokens: c.MaxTokens.Fast},
			llm.BALANCED: {Model: c.TierModels.Balanced, MaxOutputTokens: c.MaxTokens.Balanced},
			llm.QUALITY:  {Model: c.TierModels.Quality, MaxOutputTokens: c.MaxTokens.Quality},
		},
		RatePerMin: map[llm.Tier]float64{
			llm.FAST:     c.RatePerMin.Fast,
			llm.BALANCED: c.RatePerMin.Balanced,
			llm.QUALITY:  c.RatePerMin.Quality,
		},
		Temperature: c.Temperature,
		Retry: llm.RetryConfig{
			MaxAttempts:  c.Retries.Max,
			BaseDelay:    time.Duration(c.Retries.BaseMS) * time.Millisecond,
			MaxDelay:     time.Duration(c.Retries.MaxMS) * time.Millisecond,
			JitterFactor: 0.25,
		},
		CallTimeout: time.Duration(c.TimeoutMS) * time.Millisecond,
	}
}
