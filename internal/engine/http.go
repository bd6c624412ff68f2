package engine

import (
	"crypto/tls"
	"net/http"
	"time"
)

// ClientOptions describes the transport chain shared by crawl and probe
// requests.
type ClientOptions struct {
	Timeout       time.Duration
	RootDomain    string
	RequestBudget int64
	Metrics       *Metrics
}

// NewHTTPClient builds the client. The chain, outermost first, is
// metrics -> domain boundary -> request budget -> net/http transport.
func NewHTTPClient(opts ClientOptions) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var rt http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	rt = &RequestBudgetTransport{Base: rt, Max: opts.RequestBudget}
	if opts.RootDomain != "" {
		rt = &DomainBoundaryTransport{Base: rt, RootDomain: opts.RootDomain}
	}
	rt = &MetricsTransport{Base: rt, Metrics: opts.Metrics}

	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
		// Redirects come back as responses. Callers decide whether the
		// Location is in scope, and each hop goes through the limiter.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
