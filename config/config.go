package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Templates  TemplatesConfig  `yaml:"templates" mapstructure:"templates"`
	Table      TableConfig      `yaml:"table" mapstructure:"table"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int   `yaml:"port" mapstructure:"port"`
	MaxUploadMB int64 `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TemplatesConfig points at a directory of vendor templates. Empty means
// only the built-in templates are available.
type TemplatesConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// TableConfig configures the ruled-table extractor.
type TableConfig struct {
	Python      string `yaml:"python" mapstructure:"python"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Disabled    bool   `yaml:"disabled" mapstructure:"disabled"`
}

// Timeout returns the extractor timeout as a duration.
func (t TableConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSecs) * time.Second
}

// BatchConfig configures batch extraction.
type BatchConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ValidationConfig configures the arithmetic validator.
type ValidationConfig struct {
	Tolerance string `yaml:"tolerance" mapstructure:"tolerance"`
}

// ToleranceDecimal parses Tolerance.
func (v ValidationConfig) ToleranceDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(v.Tolerance))
	if err != nil {
		return decimal.Zero, eris.Wrapf(err, "config: invalid validation.tolerance %q", v.Tolerance)
	}
	if d.IsNegative() {
		return decimal.Zero, eris.Errorf("config: validation.tolerance must not be negative, got %s", v.Tolerance)
	}
	return d, nil
}

// Load reads configuration from .env, config.yaml and the environment
// (INVOICE_ prefix).
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("templates.dir", "")
	v.SetDefault("table.python", "python3")
	v.SetDefault("table.timeout_secs", 60)
	v.SetDefault("table.disabled", false)
	v.SetDefault("batch.workers", 4)
	v.SetDefault("validation.tolerance", "0.02")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Batch.Workers < 1 {
		return eris.Errorf("config: batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if _, err := c.Validation.ToleranceDecimal(); err != nil {
		return err
	}
	return nil
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
