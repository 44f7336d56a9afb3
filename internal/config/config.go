package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/labeleval/internal/provider"
	"github.com/sells-group/labeleval/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store        store.Config       `yaml:"store" mapstructure:"store"`
	Gemini       ProviderConfig     `yaml:"gemini" mapstructure:"gemini"`
	Groq         ProviderConfig     `yaml:"groq" mapstructure:"groq"`
	Claude       ProviderConfig     `yaml:"claude" mapstructure:"claude"`
	OpenAI       ProviderConfig     `yaml:"openai" mapstructure:"openai"`
	CloudVision  ProviderConfig     `yaml:"cloudvision" mapstructure:"cloudvision"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Prompt       PromptConfig       `yaml:"prompt" mapstructure:"prompt"`
	Consensus    ConsensusConfig    `yaml:"consensus" mapstructure:"consensus"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// ProviderConfig holds one AI provider's credentials and call tuning.
type ProviderConfig struct {
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Settings converts the config section into provider call settings.
func (c ProviderConfig) Settings() provider.Settings {
	return provider.Settings{
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     time.Duration(c.TimeoutSecs) * time.Second,
	}
}

// OrchestratorConfig configures fan-out behavior.
type OrchestratorConfig struct {
	Mode              string `yaml:"mode" mapstructure:"mode"`
	SequentialDelayMS int    `yaml:"sequential_delay_ms" mapstructure:"sequential_delay_ms"`
}

// SequentialDelay returns the inter-provider pause for sequential mode.
func (c OrchestratorConfig) SequentialDelay() time.Duration {
	return time.Duration(c.SequentialDelayMS) * time.Millisecond
}

// PromptConfig configures the prompt cache.
type PromptConfig struct {
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
}

// CacheTTL returns the prompt cache entry lifetime.
func (c PromptConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// ConsensusConfig configures consensus scoring.
type ConsensusConfig struct {
	FieldsFile string `yaml:"fields_file" mapstructure:"fields_file"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("LABELEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "labeleval.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("orchestrator.mode", "parallel")
	v.SetDefault("orchestrator.sequential_delay_ms", 2000)
	v.SetDefault("prompt.cache_ttl_minutes", 5)
	v.SetDefault("consensus.fields_file", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash-exp")
	v.SetDefault("groq.model", "meta-llama/llama-4-scout-17b-16e-instruct")
	v.SetDefault("claude.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.model", "gpt-4o-mini")
	for _, p := range []string{"gemini", "groq", "claude", "openai", "cloudvision"} {
		// The empty api_key default registers the key so env-only
		// credentials survive Unmarshal.
		v.SetDefault(p+".api_key", "")
		v.SetDefault(p+".temperature", 0.1)
		v.SetDefault(p+".max_tokens", 8192)
		v.SetDefault(p+".timeout_secs", 120)
	}

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
