/*
Copyright (c) 2026 moyaru <rbffo@icloud.com>
*/

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MOYARU/crawlprobe/internal/app/interactive"
	"github.com/MOYARU/crawlprobe/internal/app/scan"
	"github.com/MOYARU/crawlprobe/internal/app/ui"
	"github.com/MOYARU/crawlprobe/internal/config"
	msges "github.com/MOYARU/crawlprobe/internal/messages"
	appver "github.com/MOYARU/crawlprobe/internal/version"
	"github.com/spf13/cobra"
)

var (
	version = appver.Value

	configPath  string
	verbose     bool
	assumeYes   bool
	plain       bool
	scopePaths  []string
	mode        string
	depth       int
	maxPages    int
	delay       time.Duration
	timeout     time.Duration
	concurrency int
	budget      int64
	checks      []string
	output      string
	htmlOutput  string
	metricsAddr string
	crossDomain bool
	fingerprint bool
	headers     []string
)

var rootCmd = &cobra.Command{
	Use:          "crawlprobe [target]",
	Short:        "crawlprobe crawls a web application and probes its forms for XSS, SQL injection and CSRF weaknesses.",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.SetNoColor(plain || os.Getenv("NO_COLOR") != "")
		logger := newLogger(verbose)
		slog.SetDefault(logger)

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, &cfg); err != nil {
			return err
		}

		ctx, cancel := ui.WaitForCancel(context.Background())
		defer cancel()

		if len(args) == 0 && cfg.BaseURL == "" {
			ui.PrintGradientAsciiArt()
			return interactive.New(cfg, configPath, logger).Run(ctx)
		}
		if len(args) == 1 {
			cfg.BaseURL = scan.NormalizeTarget(ctx, args[0])
		}

		if !assumeYes {
			fmt.Printf("\n%s%s%s\n", ui.ColorRed, msges.GetUIMessage("ActiveScanWarning"), ui.ColorReset)
			fmt.Printf("%s%s%s\n", ui.ColorYellow, msges.GetUIMessage("ActiveScanPermission"), ui.ColorReset)
			ok, err := ui.Confirm(ui.ColorYellow + msges.GetUIMessage("ActiveScanPrompt") + ui.ColorReset)
			if err != nil || !ok {
				fmt.Printf("\n%s%s%s\n", ui.ColorYellow, msges.GetUIMessage("ActiveScanAborted"), ui.ColorReset)
				return nil
			}
		}

		if _, err := scan.RunScan(ctx, cfg, scan.Options{Logger: logger}); err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s%v%s\n", ui.ColorRed, err, ui.ColorReset)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// applyFlags overlays explicitly set flags on the loaded config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("scope") {
		cfg.ScopePaths = scopePaths
	}
	if f.Changed("mode") {
		cfg.Mode = config.CrawlMode(mode)
	}
	if f.Changed("depth") {
		cfg.MaxDepth = depth
	}
	if f.Changed("max-pages") {
		cfg.MaxPages = maxPages
	}
	if f.Changed("delay") {
		cfg.Delay = delay
	}
	if f.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if f.Changed("concurrency") {
		cfg.Concurrency = concurrency
	}
	if f.Changed("request-budget") {
		cfg.RequestBudget = budget
	}
	if f.Changed("checks") {
		cfg.Checks = checks
	}
	if f.Changed("output") {
		cfg.Output = output
	}
	if f.Changed("html") {
		cfg.HTMLOutput = htmlOutput
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if f.Changed("allow-cross-domain") {
		cfg.AllowCrossDomain = crossDomain
	}
	if f.Changed("fingerprint") {
		cfg.Fingerprint = fingerprint
	}
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid header %q (want Name: value)", h)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		cfg.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return nil
}

func init() {
	rootCmd.Version = version
	def := config.Default()

	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file (default .crawlprobe.yaml if present)")
	f.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	f.BoolVarP(&assumeYes, "yes", "y", false, "Skip the permission prompt")
	f.BoolVar(&plain, "no-color", false, "Disable coloured severity badges")
	f.StringSliceVar(&scopePaths, "scope", nil, "Path prefixes to stay within (repeatable)")
	f.StringVar(&mode, "mode", string(def.Mode), "Crawl order: bfs or dfs")
	f.IntVar(&depth, "depth", def.MaxDepth, "Maximum link depth from the base URL")
	f.IntVar(&maxPages, "max-pages", def.MaxPages, "Maximum number of pages to fetch")
	f.DurationVar(&delay, "delay", def.Delay, "Minimum interval between requests")
	f.DurationVar(&timeout, "timeout", def.Timeout, "Per-request timeout")
	f.IntVar(&concurrency, "concurrency", def.Concurrency, "Concurrent crawl workers and probed parameters")
	f.Int64Var(&budget, "request-budget", 0, "Hard cap on outgoing requests (0 = unlimited)")
	f.StringSliceVar(&checks, "checks", def.Checks, "Checks to run: xss, sqli, csrf")
	f.StringVarP(&output, "output", "o", def.Output, "Findings JSON path")
	f.StringVar(&htmlOutput, "html", "", "Also write an HTML report to this path")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the scan")
	f.BoolVar(&crossDomain, "allow-cross-domain", false, "Allow requests outside the target's registrable domain")
	f.BoolVar(&fingerprint, "fingerprint", false, "Attach a target fingerprint to findings")
	f.StringArrayVarP(&headers, "header", "H", nil, "Extra request header, e.g. 'Cookie: sid=1' (repeatable)")

	rootCmd.Long = ui.AsciiArt + `
crawlprobe crawls a web application within a configured scope, extracts its
forms and probes every parameter for reflected XSS, error, boolean and
time based SQL injection, and CSRF weaknesses. Findings are scored and
written as JSON.

Usage:
   crawlprobe [target_url] [flags]

Example:
  crawlprobe https://example.com
  crawlprobe https://example.com --scope /app --depth 2 --mode dfs
  crawlprobe https://example.com --checks sqli --request-budget 500 -o out.json
  crawlprobe --config scan.yaml --yes

Run without a target to start the interactive shell.

This tool sends real attack payloads. Use it only on assets you own or have
explicit permission to test.
`
}
