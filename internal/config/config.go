package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/deck-winrate/internal/charts"
	"github.com/ramonehamilton/deck-winrate/internal/matchup"
	"github.com/ramonehamilton/deck-winrate/internal/winrate"
)

// Config represents the application configuration.
type Config struct {
	// API server configuration
	Server ServerConfig `toml:"server"`

	// Calculation defaults
	Calculator CalculatorConfig `toml:"calculator"`

	// HTML chart output
	Chart ChartConfig `toml:"chart"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// ServerConfig contains REST API settings.
type ServerConfig struct {
	Port           int      `toml:"port"`            // Listen port
	AllowedOrigins []string `toml:"allowed_origins"` // CORS origins
	RateLimit      float64  `toml:"rate_limit"`      // Requests per second (0 = unlimited)
	RateBurst      int      `toml:"rate_burst"`      // Burst size for the limiter
	RequestTimeout string   `toml:"request_timeout"` // Per-request timeout (e.g., "30s")
}

// CalculatorConfig contains calculation defaults.
type CalculatorConfig struct {
	ProjectionBattles int    `toml:"projection_battles"` // Largest battle count in the projection table
	UnknownDeckName   string `toml:"unknown_deck_name"`  // Name of the synthetic unknown matchup
	Language          string `toml:"language"`           // Advantage label language ("en" or "ja")
}

// ChartConfig contains chart rendering settings.
type ChartConfig struct {
	Width  string `toml:"width"`  // Chart width (e.g., "900px")
	Height string `toml:"height"` // Chart height (e.g., "500px")
	Theme  string `toml:"theme"`  // go-echarts theme
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			RateLimit:      20,
			RateBurst:      40,
			RequestTimeout: "30s",
		},
		Calculator: CalculatorConfig{
			ProjectionBattles: winrate.DefaultProjectionBattles,
			UnknownDeckName:   matchup.DefaultUnknownDeckName,
			Language:          matchup.LangEnglish,
		},
		Chart: ChartConfig{
			Width:  "900px",
			Height: "500px",
			Theme:  "light",
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// DefaultPath returns the path to the user configuration file.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".deck-winrate", "config.toml"), nil
}

// Load loads the configuration from path, or from DefaultPath when path is empty.
// A missing file yields the default config. Environment overrides (optionally
// from a .env file in the working directory) are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Missing .env is fine
	_ = godotenv.Load()
	applyEnvOverrides(config)

	return config, nil
}

// Save saves the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative: %v", c.Server.RateLimit)
	}

	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		return fmt.Errorf("rate burst must be positive when rate limiting: %d", c.Server.RateBurst)
	}

	if _, err := time.ParseDuration(c.Server.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request timeout %q: %w", c.Server.RequestTimeout, err)
	}

	if c.Calculator.ProjectionBattles <= 0 {
		return fmt.Errorf("projection battles must be positive: %d", c.Calculator.ProjectionBattles)
	}

	switch c.Calculator.Language {
	case matchup.LangEnglish, matchup.LangJapanese:
	default:
		return fmt.Errorf("unsupported language %q", c.Calculator.Language)
	}

	return nil
}

// GetRequestTimeout returns the request timeout as a duration.
func (c *Config) GetRequestTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.RequestTimeout)
}

// CalculatorOptions returns the winrate options described by the config.
func (c *Config) CalculatorOptions() winrate.Options {
	return winrate.Options{
		ProjectionBattles: c.Calculator.ProjectionBattles,
		UnknownDeckName:   c.Calculator.UnknownDeckName,
	}
}

// ChartOptions returns the chart settings described by the config.
func (c *Config) ChartOptions() charts.ChartConfig {
	chart := charts.DefaultChartConfig()
	if c.Chart.Width != "" {
		chart.Width = c.Chart.Width
	}
	if c.Chart.Height != "" {
		chart.Height = c.Chart.Height
	}
	if c.Chart.Theme != "" {
		chart.Theme = c.Chart.Theme
	}
	chart.Language = c.Calculator.Language
	return chart
}

// NewLogger returns a text logger writing to w, at debug level when
// app.debug_mode is set.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if c.App.DebugMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// applyEnvOverrides overwrites fields from WINRATE_* environment variables.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("WINRATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("WINRATE_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
		c.Server.AllowedOrigins = origins
	}
	if v := os.Getenv("WINRATE_LANGUAGE"); v != "" {
		c.Calculator.Language = v
	}
	if v := os.Getenv("WINRATE_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.App.DebugMode = debug
		}
	}
}
