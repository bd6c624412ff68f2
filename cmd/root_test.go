package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOYARU/crawlprobe/internal/config"
)

func TestApplyFlagsOverridesOnlyChanged(t *testing.T) {
	require.NoError(t, rootCmd.ParseFlags([]string{
		"--mode", "dfs",
		"--delay", "2s",
		"--scope", "/app,/admin",
		"-H", "Cookie: sid=1",
		"--checks", "sqli",
		"--html", "out/report.html",
	}))

	cfg := config.Default()
	cfg.MaxDepth = 7
	require.NoError(t, applyFlags(rootCmd, &cfg))

	assert.Equal(t, config.DepthFirst, cfg.Mode)
	assert.Equal(t, 2*time.Second, cfg.Delay)
	assert.Equal(t, []string{"/app", "/admin"}, cfg.ScopePaths)
	assert.Equal(t, []string{"sqli"}, cfg.Checks)
	assert.Equal(t, map[string]string{"Cookie": "sid=1"}, cfg.Headers)
	assert.Equal(t, "out/report.html", cfg.HTMLOutput)
	assert.Equal(t, 7, cfg.MaxDepth, "unset flags keep the config file value")

	headers = []string{"broken"}
	assert.Error(t, applyFlags(rootCmd, &cfg))
	headers = nil
}
