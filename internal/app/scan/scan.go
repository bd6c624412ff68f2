package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MOYARU/crawlprobe/internal/app/output"
	"github.com/MOYARU/crawlprobe/internal/app/ui"
	"github.com/MOYARU/crawlprobe/internal/config"
	"github.com/MOYARU/crawlprobe/internal/crawler"
	"github.com/MOYARU/crawlprobe/internal/engine"
	msges "github.com/MOYARU/crawlprobe/internal/messages"
	"github.com/MOYARU/crawlprobe/internal/probe"
	"github.com/MOYARU/crawlprobe/internal/report"
	appver "github.com/MOYARU/crawlprobe/internal/version"
)

type Options struct {
	Logger *slog.Logger
	// Quiet suppresses console output. The JSON document is still written.
	Quiet bool
}

// Result is what a finished run produced.
type Result struct {
	Pages      []crawler.Page
	Forms      []crawler.Form
	Findings   []report.Finding
	ReportPath string
	HTMLPath   string
	Requests   int64
}

// RunScan crawls cfg.BaseURL, probes every in-scope form it found and writes
// the findings document. A cancelled ctx stops crawling and probing early but
// still persists whatever was collected.
func RunScan(ctx context.Context, cfg config.Config, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := report.SetRedactionPatterns(cfg.RedactionPatterns); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	console := func(color, format string, args ...any) {
		if !opts.Quiet {
			fmt.Printf("%s%s%s\n", color, fmt.Sprintf(format, args...), ui.ColorReset)
		}
	}

	scope, err := crawler.NewScope(cfg.BaseURL, cfg.ScopePaths)
	if err != nil {
		return nil, err
	}

	metrics := engine.NewMetrics()
	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, metrics, log)
		if err != nil {
			return nil, err
		}
		defer stop()
		console(ui.ColorGray, "%s", msges.GetUIMessage("MetricsListening", cfg.MetricsAddr))
	}

	var rootDomain string
	if !cfg.AllowCrossDomain {
		rootDomain = engine.RootDomainOf(scope.Host)
	}
	client := engine.NewHTTPClient(engine.ClientOptions{
		Timeout:       cfg.Timeout,
		RootDomain:    rootDomain,
		RequestBudget: cfg.RequestBudget,
		Metrics:       metrics,
	})
	fetcher := engine.NewFetcher(client, engine.NewLimiter(cfg.Delay))
	fetcher.Logger = log
	fetcher.Headers = cfg.Headers
	fetcher.UserAgent = appver.ScannerUserAgent()
	if cfg.UserAgent != "" {
		fetcher.UserAgent = cfg.UserAgent
	}

	console(ui.ColorWhite, "%s", msges.GetUIMessage("Target", report.SanitizeURL(cfg.BaseURL)))
	if len(cfg.ScopePaths) > 0 {
		console(ui.ColorWhite, "%s", msges.GetUIMessage("Scope", strings.Join(cfg.ScopePaths, ", ")))
	}
	console(ui.ColorGray, "%s", msges.GetUIMessage("CrawlerStart", cfg.Mode, cfg.MaxDepth, cfg.MaxPages))

	startTime := time.Now()
	c := crawler.New(fetcher, crawler.Options{
		Mode:        cfg.Mode,
		MaxDepth:    cfg.MaxDepth,
		MaxPages:    cfg.MaxPages,
		Concurrency: cfg.Concurrency,
		Scope:       scope,
		Observer:    metrics,
		Logger:      log,
	})
	crawled, err := c.Run(ctx, cfg.BaseURL)
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("crawl: %w", err)
	}

	// Form actions are resolved from page markup and may point anywhere.
	forms := make([]crawler.Form, 0, len(crawled.Forms))
	for _, f := range crawled.Forms {
		if scope.Allows(f.Action) {
			forms = append(forms, f)
		} else {
			log.Debug("form action out of scope", "action", f.Action, "source", f.SourceURL)
		}
	}
	console(ui.ColorGreen, "%s", msges.GetUIMessage("CrawlingComplete", len(crawled.Pages), len(crawled.Forms), len(forms)))
	if !opts.Quiet && len(crawled.Pages) > 1 {
		fmt.Printf("\n%s%s%s\n", ui.ColorWhite, msges.GetUIMessage("CrawledScope"), ui.ColorReset)
		for _, p := range crawled.Pages {
			fmt.Printf(" - %s\n", report.SanitizeURL(p.URL))
		}
		fmt.Println()
	}

	sink := report.NewSink(func(f report.Finding) {
		metrics.ObserveFinding(string(f.Meta().Kind))
	})
	prober := probe.New(fetcher, sink, probe.Options{
		ErrorPayloads:    cfg.ErrorPayloads,
		XSSPayloads:      cfg.XSSPayloads,
		ErrorThreshold:   cfg.ErrorDiffThreshold,
		BooleanThreshold: cfg.BooleanDiffThreshold,
		TimeMargin:       cfg.TimeMargin,
		Concurrency:      cfg.Concurrency,
		XSS:              cfg.Enabled(config.CheckXSS),
		SQLi:             cfg.Enabled(config.CheckSQLi),
		CSRF:             cfg.Enabled(config.CheckCSRF),
		Fingerprint:      cfg.Fingerprint,
		Logger:           log,
	})
	var progress func(int, crawler.Form)
	if !opts.Quiet {
		progress = func(i int, f crawler.Form) {
			output.PrintScanProgress(i, len(forms), "Probing", f.Method+" "+report.SanitizeURL(f.Action))
		}
	}
	prober.ProbeForms(ctx, forms, progress)
	if !opts.Quiet && len(forms) > 0 {
		output.PrintScanProgress(len(forms), len(forms), "Probing", "")
		fmt.Println()
	}
	if ctx.Err() != nil {
		console(ui.ColorYellow, "%s", msges.GetUIMessage("ScanCancelled"))
	} else {
		console(ui.ColorGreen, "%s", msges.GetUIMessage("ProbingComplete"))
	}
	endTime := time.Now()

	requests, roundTrip := metrics.Snapshot()
	res := &Result{
		Pages:    crawled.Pages,
		Forms:    forms,
		Findings: sink.All(),
		Requests: requests,
	}

	doc := output.Report{
		Target:    report.SanitizeURL(cfg.BaseURL),
		Scope:     cfg.ScopePaths,
		StartTime: startTime,
		EndTime:   endTime,
		Requests:  requests,
		Pages:     append([]crawler.Page(nil), crawled.Pages...),
		Forms:     forms,
		Findings:  res.Findings,
	}
	path, err := output.SaveJSONReport(cfg.Output, doc)
	if err != nil {
		console(ui.ColorRed, "%s", msges.GetUIMessage("JSONReportFailed", err))
		return res, err
	}
	res.ReportPath = path
	if cfg.HTMLOutput != "" {
		htmlPath, err := output.SaveHTMLReport(cfg.HTMLOutput, doc, cfg.Headers)
		if err != nil {
			console(ui.ColorRed, "%s", msges.GetUIMessage("HTMLReportFailed", err))
			return res, err
		}
		res.HTMLPath = htmlPath
	}

	if !opts.Quiet {
		output.PrintFindings(res.Findings, cfg.Headers)
		output.PrintScanSummary(output.Summarize(res.Findings))
	}
	console(ui.ColorGray, "%s", msges.GetUIMessage("RequestsSent", requests, roundTrip.Round(time.Millisecond)))
	console(ui.ColorGray, "Scan completed in %.2fs", endTime.Sub(startTime).Seconds())
	console(ui.ColorGreen, "%s", msges.GetUIMessage("JSONReportSaved", path))
	if res.HTMLPath != "" {
		console(ui.ColorGreen, "%s", msges.GetUIMessage("HTMLReportSaved", res.HTMLPath))
	}
	return res, nil
}

func serveMetrics(addr string, m *engine.Metrics, log *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// NormalizeTarget adds a scheme to bare host targets given on the command
// line, preferring https when the host answers on it.
func NormalizeTarget(ctx context.Context, raw string) string {
	target := strings.TrimSpace(raw)
	if target == "" || strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if httpsReachable(ctx, target) {
		return "https://" + target
	}
	return "http://" + target
}

func httpsReachable(ctx context.Context, host string) bool {
	parsed, err := url.Parse("https://" + host)
	if err != nil || parsed.Host == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, (&url.URL{Scheme: "https", Host: parsed.Host, Path: "/"}).String(), nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
