// Package probe drives discovered forms through the injection checks and
// reports each positive classification as a finding.
package probe

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MOYARU/crawlprobe/internal/crawler"
	"github.com/MOYARU/crawlprobe/internal/engine"
	"github.com/MOYARU/crawlprobe/internal/fingerprint"
	"github.com/MOYARU/crawlprobe/internal/report"
	appver "github.com/MOYARU/crawlprobe/internal/version"
)

type Fetcher interface {
	Fetch(ctx context.Context, r engine.Request) (*engine.Snapshot, error)
}

type Options struct {
	ErrorPayloads    []string
	XSSPayloads      []string
	ErrorThreshold   float64
	BooleanThreshold float64
	TimeMargin       time.Duration
	Concurrency      int

	XSS  bool
	SQLi bool
	CSRF bool

	// Fingerprint attaches a fingerprint.Snapshot of each form target to
	// its findings.
	Fingerprint bool
	Logger      *slog.Logger
}

type Engine struct {
	fetcher  Fetcher
	reporter report.Reporter
	opts     Options

	errorPayloads []string
	xssPayloads   []string

	fpMu    sync.Mutex
	targets map[string]*fingerprint.Snapshot
}

func New(f Fetcher, r report.Reporter, opts Options) *Engine {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ErrorThreshold <= 0 {
		opts.ErrorThreshold = 0.10
	}
	if opts.BooleanThreshold <= 0 {
		opts.BooleanThreshold = 0.20
	}
	if opts.TimeMargin <= 0 {
		opts.TimeMargin = 2500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		fetcher:       f,
		reporter:      r,
		opts:          opts,
		errorPayloads: orDefault(opts.ErrorPayloads, DefaultErrorPayloads),
		xssPayloads:   orDefault(opts.XSSPayloads, DefaultXSSPayloads),
		targets:       make(map[string]*fingerprint.Snapshot),
	}
}

// ProbeForms runs every enabled check against each form in turn. progress,
// if set, is called before form i is probed.
func (e *Engine) ProbeForms(ctx context.Context, forms []crawler.Form, progress func(i int, f crawler.Form)) {
	for i, form := range forms {
		if ctx.Err() != nil {
			return
		}
		if progress != nil {
			progress(i, form)
		}
		e.ProbeForm(ctx, form)
	}
}

// ProbeForm probes the parameters of one form concurrently, bounded by
// Options.Concurrency, then runs the form-level CSRF check.
func (e *Engine) ProbeForm(ctx context.Context, form crawler.Form) {
	run := &formRun{e: e, form: form}
	if e.opts.XSS {
		run.xss = ByParam(BuildMatrix(form, e.xssPayloads, Replace))
	}
	if e.opts.SQLi {
		run.sqlErr = ByParam(BuildMatrix(form, e.errorPayloads, Append))
	}
	if e.opts.Fingerprint {
		run.target = e.fingerprint(ctx, form.Action)
	}
	log := e.opts.Logger.With("action", form.Action, "method", form.Method)
	log.Debug("probing form", "params", len(form.Inputs))

	sem := make(chan struct{}, e.opts.Concurrency)
	var wg sync.WaitGroup
	for _, param := range TargetParams(form) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return
		}
		wg.Add(1)
		go func(param string) {
			defer wg.Done()
			defer func() { <-sem }()
			run.probeParam(ctx, param)
		}(param)
	}
	wg.Wait()

	if e.opts.CSRF && StateChanging(form.Method) && ctx.Err() == nil {
		run.probeCSRF(ctx)
	}
}

func (e *Engine) fingerprint(ctx context.Context, target string) *fingerprint.Snapshot {
	e.fpMu.Lock()
	defer e.fpMu.Unlock()
	if snap, ok := e.targets[target]; ok {
		return snap
	}
	snap := fingerprint.Take(ctx, e.fetcher, target)
	e.targets[target] = &snap
	return &snap
}

func (e *Engine) report(f report.Finding) {
	m := f.Meta()
	e.opts.Logger.Info("finding", "kind", m.Kind, "url", m.URL, "method", m.Method, "risk", m.RiskScore)
	e.reporter.AddFinding(f)
}

// formRun carries the per-form state shared by the checks.
type formRun struct {
	e      *Engine
	form   crawler.Form
	target *fingerprint.Snapshot

	xss    map[string][]Case
	sqlErr map[string][]Case
}

func (r *formRun) probeParam(ctx context.Context, param string) {
	if r.e.opts.XSS {
		r.probeXSS(ctx, param, r.xss[param])
	}
	if r.e.opts.SQLi {
		r.probeSQLiError(ctx, param, r.sqlErr[param])
		r.probeSQLiBoolean(ctx, param)
		r.probeSQLiTime(ctx, param)
	}
}

func (r *formRun) send(ctx context.Context, params map[string]string, headers http.Header) (*engine.Snapshot, error) {
	if headers == nil {
		headers = http.Header{}
	}
	if headers.Get("User-Agent") == "" {
		headers.Set("User-Agent", appver.ProbeUserAgent())
	}
	return r.e.fetcher.Fetch(ctx, engine.Request{
		Method:  r.form.Method,
		URL:     r.form.Action,
		Params:  params,
		Headers: headers,
	})
}

func (r *formRun) common(kind report.Kind, params map[string]string, exploitability, impact int, confidence float64) report.Common {
	c := report.NewCommon(kind, r.form.Action, r.form.Method, params, exploitability, impact, confidence)
	c.Target = r.target
	return c
}

func summarize(s *engine.Snapshot) *report.Summary {
	if s == nil {
		return nil
	}
	return report.Summarize(s.Status, s.Body, s.Elapsed)
}
