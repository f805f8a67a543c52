package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/titlegest/internal/titles"
	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"port"`

	// Auth; empty disables bearer auth on /api routes.
	APIKey string `mapstructure:"api_key"`

	// SQLite database file
	DBPath string `mapstructure:"db_path"`

	// Title detection thresholds
	TitleFontSize    float64 `mapstructure:"title_font_size"`
	MinTitleLength   int     `mapstructure:"min_title_length"`
	MinTitleDistance int     `mapstructure:"min_title_distance"`

	// Worker pool
	WorkerCount  int `mapstructure:"worker_count"`
	MaxQueueSize int `mapstructure:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
	MaxPages       int   `mapstructure:"max_pages"`

	// Job state
	JobTTL time.Duration `mapstructure:"job_ttl"`
}

// envKeys maps config keys to the environment variables that override them.
var envKeys = map[string]string{
	"port":               "PORT",
	"api_key":            "TITLEGEST_API_KEY",
	"db_path":            "DB_PATH",
	"title_font_size":    "TITLE_FONT_SIZE",
	"min_title_length":   "MIN_TITLE_LENGTH",
	"min_title_distance": "MIN_TITLE_DISTANCE",
	"worker_count":       "WORKER_COUNT",
	"max_queue_size":     "MAX_QUEUE_SIZE",
	"max_upload_bytes":   "MAX_UPLOAD_BYTES",
	"max_pages":          "MAX_PAGES",
	"job_ttl":            "JOB_TTL",
}

// Default returns the built-in configuration.
func Default() Config {
	t := titles.DefaultConfig()
	return Config{
		Port:             "8090",
		DBPath:           "titlegest.db",
		TitleFontSize:    t.TitleFontSize,
		MinTitleLength:   t.MinTitleLength,
		MinTitleDistance: t.MinTitleDistance,
		WorkerCount:      4,
		MaxQueueSize:     100,
		MaxUploadBytes:   52428800, // 50MB
		MaxPages:         2000,
		JobTTL:           time.Hour,
	}
}

// Load reads defaults, the optional YAML file and environment overrides.
// An empty cfgFile looks for titlegest.yaml in the working directory and
// $HOME/.titlegest; a missing file is not an error.
func Load(cfgFile string) (Config, error) {
	v, err := newViper(cfgFile)
	if err != nil {
		return Config{}, err
	}
	return unmarshal(v)
}

func newViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	d := Default()
	v.SetDefault("port", d.Port)
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("title_font_size", d.TitleFontSize)
	v.SetDefault("min_title_length", d.MinTitleLength)
	v.SetDefault("min_title_distance", d.MinTitleDistance)
	v.SetDefault("worker_count", d.WorkerCount)
	v.SetDefault("max_queue_size", d.MaxQueueSize)
	v.SetDefault("max_upload_bytes", d.MaxUploadBytes)
	v.SetDefault("max_pages", d.MaxPages)
	v.SetDefault("job_ttl", d.JobTTL)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("titlegest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.titlegest")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

func unmarshal(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	d := Default()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = d.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = d.MaxQueueSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = d.MaxUploadBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = d.JobTTL
	}
	return cfg, nil
}

// Titles returns the detection thresholds.
func (c Config) Titles() titles.Config {
	return titles.Config{
		TitleFontSize:    c.TitleFontSize,
		MinTitleLength:   c.MinTitleLength,
		MinTitleDistance: c.MinTitleDistance,
	}
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("MAX_PAGES must not be negative")
	}
	if err := c.Titles().Validate(); err != nil {
		return err
	}
	return nil
}
