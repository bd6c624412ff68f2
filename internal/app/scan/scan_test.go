package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOYARU/crawlprobe/internal/config"
	"github.com/MOYARU/crawlprobe/internal/report"
)

func vulnerableSite() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
<a href="/about">About</a>
<a href="https://elsewhere.example/">Off site</a>
<form action="/search" method="get"><input name="q"><input type="submit" value="Go"></form>
<form action="https://elsewhere.example/collect" method="get"><input name="email"></form>
</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/">Home</a></body></html>`)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if strings.Contains(r.FormValue("q"), "'") {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `<html><body>You have an error in your SQL syntax near '' at line 1</body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><p>No results.</p></body></html>`)
	})
	return httptest.NewServer(mux)
}

func testConfig(t *testing.T, base string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.BaseURL = base
	cfg.Delay = 0
	cfg.Timeout = 5 * time.Second
	cfg.Checks = []string{config.CheckSQLi, config.CheckXSS}
	cfg.Output = filepath.Join(t.TempDir(), "findings.json")
	return cfg
}

func TestRunScanEndToEnd(t *testing.T) {
	srv := vulnerableSite()
	defer srv.Close()

	cfg := testConfig(t, srv.URL+"/")
	res, err := RunScan(context.Background(), cfg, Options{Quiet: true})
	require.NoError(t, err)

	assert.Len(t, res.Pages, 2)
	require.Len(t, res.Forms, 1, "off-site form action must be dropped")
	assert.Equal(t, srv.URL+"/search", res.Forms[0].Action)

	require.Len(t, res.Findings, 1)
	f, ok := res.Findings[0].(report.SQLiError)
	require.True(t, ok, "got %T", res.Findings[0])
	assert.Equal(t, "q", f.Parameter)
	assert.Equal(t, http.MethodGet, f.Method)
	assert.GreaterOrEqual(t, f.Confidence, 0.9)
	assert.Positive(t, res.Requests)

	raw, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	var doc struct {
		Target  string `json:"target"`
		Summary struct {
			Total int `json:"total"`
		} `json:"summary"`
		Findings []struct {
			Kind       string            `json:"kind"`
			Parameter  string            `json:"parameter"`
			Params     map[string]string `json:"params"`
			Confidence float64           `json:"confidence"`
		} `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 1, doc.Summary.Total)
	require.Len(t, doc.Findings, 1)
	assert.Equal(t, "sqli-error", doc.Findings[0].Kind)
	assert.Equal(t, "q", doc.Findings[0].Parameter)
	assert.Equal(t, "test'", doc.Findings[0].Params["q"])
}

func TestRunScanRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.BaseURL = "ftp://example.com"
	_, err := RunScan(context.Background(), cfg, Options{Quiet: true})
	require.ErrorIs(t, err, config.ErrInvalidTarget)
}

func TestRunScanRequestBudget(t *testing.T) {
	srv := vulnerableSite()
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.RequestBudget = 3
	res, err := RunScan(context.Background(), cfg, Options{Quiet: true})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Requests, int64(3))
	assert.Empty(t, res.Findings)
}

func TestRunScanCancelledStillWritesReport(t *testing.T) {
	srv := vulnerableSite()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig(t, srv.URL)
	res, err := RunScan(ctx, cfg, Options{Quiet: true})
	require.NoError(t, err)
	assert.Empty(t, res.Findings)
	assert.FileExists(t, cfg.Output)
}

func TestNormalizeTargetKeepsScheme(t *testing.T) {
	assert.Equal(t, "http://example.com", NormalizeTarget(context.Background(), " http://example.com "))
	assert.Equal(t, "", NormalizeTarget(context.Background(), "  "))
}

func TestRunScanOracleErrorWithCustomPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><form action="/lookup"><input name="q"></form></body></html>`)
	})
	mux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if strings.Contains(r.URL.Query().Get("q"), "'") {
			fmt.Fprint(w, `<html><body>ORA-00933: SQL command not properly ended</body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>ok</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.ErrorPayloads = []string{"' OR '1'='1"}
	cfg.HTMLOutput = filepath.Join(t.TempDir(), "report.html")
	res, err := RunScan(context.Background(), cfg, Options{Quiet: true})
	require.NoError(t, err)

	require.Len(t, res.Findings, 1)
	f, ok := res.Findings[0].(report.SQLiError)
	require.True(t, ok, "got %T", res.Findings[0])
	assert.Equal(t, "ORA-", f.Signature)
	assert.GreaterOrEqual(t, f.Confidence, 0.9)
	assert.Equal(t, http.MethodGet, f.Method)
	assert.Equal(t, "test' OR '1'='1", f.Params["q"])
	assert.Equal(t, "' OR '1'='1", f.Payload)

	assert.Equal(t, cfg.HTMLOutput, res.HTMLPath)
	page, err := os.ReadFile(res.HTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "ORA-00933")
}
