package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "scan.yaml")

	content := "base_url: https://example.com\nscope_paths: [app, /admin]\nmode: DFS\nmax_depth: 5\nmax_pages: 20\ndelay: 250ms\ntimeout: 3s\nerror_diff_threshold: 0.15\nboolean_diff_threshold: 0.3\ntime_margin: 4s\nconcurrency: 4\nrequest_budget: 777\nchecks: [sqli]\nerror_payloads:\n  - \"' OR '1'='1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://example.com", cfg.BaseURL)
	assert.Equal(t, []string{"/app", "/admin"}, cfg.ScopePaths)
	assert.Equal(t, DepthFirst, cfg.Mode)
	assert.Equal(t, 5, cfg.MaxDepth)
	assert.Equal(t, 20, cfg.MaxPages)
	assert.Equal(t, 250*time.Millisecond, cfg.Delay)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 0.15, cfg.ErrorDiffThreshold)
	assert.Equal(t, 0.3, cfg.BooleanDiffThreshold)
	assert.Equal(t, 4*time.Second, cfg.TimeMargin)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, int64(777), cfg.RequestBudget)
	assert.Equal(t, []string{"' OR '1'='1"}, cfg.ErrorPayloads)
	assert.True(t, cfg.Enabled(CheckSQLi))
	assert.False(t, cfg.Enabled(CheckXSS))
	// untouched keys keep their defaults
	assert.Equal(t, "findings.json", cfg.Output)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	tmp := t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(tmp, "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BreadthFirst, cfg.Mode)
	assert.Equal(t, 0.10, cfg.ErrorDiffThreshold)
	assert.Equal(t, 0.20, cfg.BooleanDiffThreshold)
	assert.Equal(t, 2500*time.Millisecond, cfg.TimeMargin)
	assert.Equal(t, 1, cfg.Concurrency)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "empty base url", mutate: func(c *Config) { c.BaseURL = "  " }, wantErr: ErrEmptyBaseURL},
		{name: "bad scheme", mutate: func(c *Config) { c.BaseURL = "ftp://example.com" }, wantErr: ErrInvalidTarget},
		{name: "missing host", mutate: func(c *Config) { c.BaseURL = "http://" }, wantErr: ErrInvalidTarget},
		{name: "bad mode", mutate: func(c *Config) { c.Mode = "random" }, wantErr: ErrInvalidMode},
		{name: "ok", mutate: func(c *Config) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.BaseURL = "https://example.com/app"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	cfg := Default()
	cfg.BaseURL = "https://example.com"
	cfg.MaxPages = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.BaseURL = "https://example.com"
	cfg.Checks = []string{"rce"}
	assert.Error(t, cfg.Validate())
}

func TestSetAndSave(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Set("base_url", "https://example.com"))
	require.NoError(t, cfg.Set("mode", "DFS"))
	require.NoError(t, cfg.Set("delay", "1s"))
	require.NoError(t, cfg.Set("scope_paths", "/a, /b,"))
	require.NoError(t, cfg.Set("request_budget", "40"))
	require.NoError(t, cfg.Set("allow_cross_domain", "TRUE"))
	require.NoError(t, cfg.Set("html_output", "report.html"))

	assert.Equal(t, DepthFirst, cfg.Mode)
	assert.Equal(t, time.Second, cfg.Delay)
	assert.Equal(t, []string{"/a", "/b"}, cfg.ScopePaths)
	assert.Equal(t, int64(40), cfg.RequestBudget)
	assert.True(t, cfg.AllowCrossDomain)
	assert.Equal(t, "report.html", cfg.HTMLOutput)

	assert.Error(t, cfg.Set("max_depth", "deep"))
	assert.Error(t, cfg.Set("nope", "1"))

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
