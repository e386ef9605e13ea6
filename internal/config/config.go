package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Budget BudgetConfig `yaml:"budget" mapstructure:"budget"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// MaxAttempts bounds retries of connects and saves that fail
	// transiently.
	MaxAttempts    int `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryBackoffMs int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// BudgetConfig configures workbook analysis.
type BudgetConfig struct {
	HeaderScanDepth int          `yaml:"header_scan_depth" mapstructure:"header_scan_depth"`
	MinSimilarity   float64      `yaml:"min_similarity" mapstructure:"min_similarity"`
	Parallelism     int          `yaml:"parallelism" mapstructure:"parallelism"`
	InputSheet      string       `yaml:"input_sheet" mapstructure:"input_sheet"`
	BlockSheets     []string     `yaml:"block_sheets" mapstructure:"block_sheets"`
	Layout          LayoutConfig `yaml:"layout" mapstructure:"layout"`
}

// LayoutConfig describes the discipline block template. Columns are
// zero-based. A negative first_block_row means locate the first block
// automatically.
type LayoutConfig struct {
	BlockSize         int `yaml:"block_size" mapstructure:"block_size"`
	FirstBlockRow     int `yaml:"first_block_row" mapstructure:"first_block_row"`
	NumberCol         int `yaml:"number_col" mapstructure:"number_col"`
	NameCol           int `yaml:"name_col" mapstructure:"name_col"`
	LabelCol          int `yaml:"label_col" mapstructure:"label_col"`
	ManhoursCol       int `yaml:"manhours_col" mapstructure:"manhours_col"`
	ValueCol          int `yaml:"value_col" mapstructure:"value_col"`
	MinCategoryLabels int `yaml:"min_category_labels" mapstructure:"min_category_labels"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("BUDGET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "budget.db")
	v.SetDefault("store.max_attempts", 3)
	v.SetDefault("store.retry_backoff_ms", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 2.0)
	v.SetDefault("server.rate_burst", 5)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("budget.header_scan_depth", 20)
	v.SetDefault("budget.min_similarity", 0.8)
	v.SetDefault("budget.parallelism", 4)
	v.SetDefault("budget.input_sheet", "INPUT")
	v.SetDefault("budget.layout.block_size", 12)
	v.SetDefault("budget.layout.first_block_row", -1)
	v.SetDefault("budget.layout.number_col", 0)
	v.SetDefault("budget.layout.name_col", 1)
	v.SetDefault("budget.layout.label_col", 2)
	v.SetDefault("budget.layout.manhours_col", 3)
	v.SetDefault("budget.layout.value_col", 4)
	v.SetDefault("budget.layout.min_category_labels", 6)

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
