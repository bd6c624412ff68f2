package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	appver "github.com/MOYARU/crawlprobe/internal/version"
)

// ErrNoResponse marks a request that produced no usable response. Callers
// skip the page or check instead of aborting the run.
var ErrNoResponse = errors.New("no response")

type Request struct {
	Method  string
	URL     string
	Params  map[string]string
	Headers http.Header
}

// Snapshot is what classification needs from a response. It is never
// persisted; findings keep a report.Summary instead.
type Snapshot struct {
	URL     *url.URL
	Status  int
	Header  http.Header
	Body    []byte
	Elapsed time.Duration
}

// Fetcher issues rate-limited requests through a shared token bucket.
type Fetcher struct {
	Client    *http.Client
	Limiter   *rate.Limiter
	UserAgent string
	Headers   map[string]string
	Logger    *slog.Logger

	tracer trace.Tracer
}

// NewLimiter hands out one token every delay. A zero delay disables limiting.
func NewLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func NewFetcher(client *http.Client, limiter *rate.Limiter) *Fetcher {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &Fetcher{
		Client:    client,
		Limiter:   limiter,
		UserAgent: appver.ScannerUserAgent(),
		Logger:    slog.Default(),
		tracer:    otel.Tracer("github.com/MOYARU/crawlprobe/internal/engine"),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, r Request) (*Snapshot, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}

	tracer := f.tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/MOYARU/crawlprobe/internal/engine")
	}
	ctx, span := tracer.Start(ctx, "fetch", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", r.URL),
	))
	defer span.End()

	req, err := buildRequest(ctx, method, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	ua := f.UserAgent
	if ua == "" {
		ua = appver.ScannerUserAgent()
	}
	req.Header.Set("User-Agent", ua)
	for k, v := range f.Headers {
		req.Header.Set(k, v)
	}
	for k, vs := range r.Headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if err := f.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}

	start := time.Now()
	resp, err := f.Client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		f.logger().Debug("request failed", "method", method, "url", r.URL, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNoResponse, method, r.URL, err)
	}
	defer resp.Body.Close()

	body, err := DecodeResponseBody(resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNoResponse, method, r.URL, err)
	}
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	f.logger().Debug("request", "method", method, "url", r.URL, "status", resp.StatusCode, "elapsed", elapsed)

	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return &Snapshot{
		URL:     final,
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Body:    body,
		Elapsed: elapsed,
	}, nil
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

// buildRequest merges Params into the query for GET/HEAD and form-encodes
// them into the body otherwise.
func buildRequest(ctx context.Context, method string, r Request) (*http.Request, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	for k, v := range r.Params {
		form.Set(k, v)
	}

	if method == http.MethodGet || method == http.MethodHead {
		if len(form) > 0 {
			q := u.Query()
			for k, vs := range form {
				q[k] = vs
			}
			u.RawQuery = q.Encode()
		}
		return http.NewRequestWithContext(ctx, method, u.String(), nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}
