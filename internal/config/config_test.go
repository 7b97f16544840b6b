package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Calculator.ProjectionBattles)
	assert.Equal(t, "Unknown deck", cfg.Calculator.UnknownDeckName)
	assert.Equal(t, "en", cfg.Calculator.Language)
	assert.False(t, cfg.App.DebugMode)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Calculator, cfg.Calculator)
}

func TestLoad_ParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = 9090
rate_limit = 5.0
rate_burst = 10
request_timeout = "10s"

[calculator]
projection_battles = 20
unknown_deck_name = "未知デッキ"
language = "ja"

[app]
debug_mode = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5.0, cfg.Server.RateLimit)
	assert.Equal(t, 20, cfg.Calculator.ProjectionBattles)
	assert.Equal(t, "未知デッキ", cfg.Calculator.UnknownDeckName)
	assert.Equal(t, "ja", cfg.Calculator.Language)
	assert.True(t, cfg.App.DebugMode)
	// Unset sections keep their defaults
	assert.Equal(t, "900px", cfg.Chart.Width)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = "), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WINRATE_PORT", "7070")
	t.Setenv("WINRATE_LANGUAGE", "ja")
	t.Setenv("WINRATE_DEBUG", "true")
	t.Setenv("WINRATE_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "ja", cfg.Calculator.Language)
	assert.True(t, cfg.App.DebugMode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.Calculator.ProjectionBattles = 15
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15, loaded.Calculator.ProjectionBattles)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"Defaults", func(*Config) {}, false},
		{"Bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"Negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }, true},
		{"Rate limit without burst", func(c *Config) { c.Server.RateBurst = 0 }, true},
		{"Unlimited without burst", func(c *Config) { c.Server.RateLimit = 0; c.Server.RateBurst = 0 }, false},
		{"Bad timeout", func(c *Config) { c.Server.RequestTimeout = "soon" }, true},
		{"Zero projection battles", func(c *Config) { c.Calculator.ProjectionBattles = 0 }, true},
		{"Unsupported language", func(c *Config) { c.Calculator.Language = "fr" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCalculatorOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calculator.ProjectionBattles = 12

	opts := cfg.CalculatorOptions()
	assert.Equal(t, 12, opts.ProjectionBattles)
	assert.Equal(t, "Unknown deck", opts.UnknownDeckName)
}

func TestChartOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chart.Width = "1200px"
	cfg.Chart.Theme = ""
	cfg.Calculator.Language = "ja"

	chart := cfg.ChartOptions()
	assert.Equal(t, "1200px", chart.Width)
	assert.Equal(t, "500px", chart.Height)
	assert.Equal(t, "light", chart.Theme)
	assert.Equal(t, "ja", chart.Language)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()

	cfg.NewLogger(&buf).Debug("hidden")
	assert.Empty(t, buf.String())

	cfg.App.DebugMode = true
	cfg.NewLogger(&buf).Debug("shown", "key", "value")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "key=value")
}
