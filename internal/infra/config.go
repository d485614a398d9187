package infra

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"coinboard/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is sent with every API request; CoinGecko rejects empty agents.
	DefaultUserAgent = "coinboard/1.0 (+https://www.coingecko.com/en/api)"

	DefaultAPIURL = "https://api.coingecko.com/api/v3"
)

// Config holds all application configuration.
// LoadConfig fills defaults, then the YAML file, then environment overrides.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		PageSize   int    `yaml:"page_size"`
		TimeoutSec int    `yaml:"timeout_sec"`
		UserAgent  string `yaml:"user_agent"`
	} `yaml:"api"`

	Refresh struct {
		IntervalSec int `yaml:"interval_sec"`
	} `yaml:"refresh"`

	UI struct {
		DefaultCurrency string `yaml:"default_currency"`
		ChartDays       int    `yaml:"chart_days"`
		ChartInterval   string `yaml:"chart_interval"`
		ChartHeight     int    `yaml:"chart_height"`
		ChartWidth      int    `yaml:"chart_width"`
	} `yaml:"ui"`

	Server struct {
		Listen         string   `yaml:"listen"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	Icons struct {
		Enabled bool   `yaml:"enabled"`
		Size    int    `yaml:"size"`
		Dir     string `yaml:"dir"`
	} `yaml:"icons"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "coinboard"
	cfg.App.Version = "1.0.0"
	cfg.API.BaseURL = DefaultAPIURL
	cfg.API.PageSize = 50
	cfg.API.TimeoutSec = 10
	cfg.API.UserAgent = DefaultUserAgent
	cfg.Refresh.IntervalSec = 60
	cfg.UI.DefaultCurrency = string(domain.DefaultCurrency)
	cfg.UI.ChartDays = 1
	cfg.UI.ChartInterval = "minute"
	cfg.UI.ChartHeight = 12
	cfg.UI.ChartWidth = 72
	cfg.Server.Listen = "127.0.0.1:8080"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Icons.Enabled = true
	cfg.Icons.Size = 24
	cfg.Logging.Level = "info"
	return &cfg
}

// LoadConfig reads the YAML file at path. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	overrideWithEnv(cfg)
	cfg.fillPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &domain.ConfigError{Field: "api.base_url", Err: fmt.Errorf("invalid URL %q", c.API.BaseURL)}
	}
	if c.API.PageSize <= 0 || c.API.PageSize > 250 {
		return &domain.ConfigError{Field: "api.page_size", Err: fmt.Errorf("must be in 1..250, got %d", c.API.PageSize)}
	}
	if c.API.TimeoutSec < 0 {
		return &domain.ConfigError{Field: "api.timeout_sec", Err: errors.New("must not be negative")}
	}
	if c.Refresh.IntervalSec <= 0 {
		return &domain.ConfigError{Field: "refresh.interval_sec", Err: errors.New("must be positive")}
	}
	if _, err := domain.ParseCurrency(c.UI.DefaultCurrency); err != nil {
		return &domain.ConfigError{Field: "ui.default_currency", Err: err}
	}
	if c.UI.ChartDays <= 0 {
		return &domain.ConfigError{Field: "ui.chart_days", Err: errors.New("must be positive")}
	}
	if c.Icons.Enabled && c.Icons.Size <= 0 {
		return &domain.ConfigError{Field: "icons.size", Err: errors.New("must be positive")}
	}
	return nil
}

// RefreshInterval returns the polling cadence.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSec) * time.Second
}

// APITimeout returns the HTTP client timeout; zero means the transport default.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// Currency returns the validated default display currency.
func (c *Config) Currency() domain.Currency {
	cur, err := domain.ParseCurrency(c.UI.DefaultCurrency)
	if err != nil {
		return domain.DefaultCurrency
	}
	return cur
}

func (c *Config) fillPaths() {
	ws := GetWorkspaceDir()
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = filepath.Join(ws, "data", "coinboard.db")
	}
	if c.Icons.Dir == "" {
		c.Icons.Dir = filepath.Join(ws, "assets", "icons")
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(ws, "logs", "app.log")
	}
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("COINBOARD_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("COINBOARD_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("COINBOARD_CURRENCY"); v != "" {
		cfg.UI.DefaultCurrency = v
	}
	if v := os.Getenv("COINBOARD_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("COINBOARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COINBOARD_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("COINBOARD_REFRESH_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Refresh.IntervalSec = n
		}
	}
}
