// Package fingerprint collects light technology evidence about a target page:
// identifying headers, cookie flags, script sources and error banners.
package fingerprint

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MOYARU/crawlprobe/internal/engine"
)

type Fetcher interface {
	Fetch(ctx context.Context, r engine.Request) (*engine.Snapshot, error)
}

type Cookie struct {
	Name     string `json:"name"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"http_only"`
	SameSite string `json:"same_site,omitempty"`
}

type Snapshot struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Cookies []Cookie          `json:"cookies,omitempty"`
	Scripts []string          `json:"scripts,omitempty"`
	Hints   []string          `json:"hints,omitempty"`
	Errors  []string          `json:"errors,omitempty"`
}

var identifyingHeaders = []string{"Server", "X-Powered-By", "X-AspNet-Version", "X-Generator"}

var frameworkHints = []struct {
	marker string
	name   string
}{
	{"react", "React"},
	{"angular", "Angular"},
	{"vue", "Vue"},
	{"jquery", "jQuery"},
}

var errorBanners = []string{"ORA-", "ODBC", "MySQL", "PostgreSQL", "SQLite", "Exception", "Traceback"}

// Take fetches target once and records what it reveals. A failed request is
// recorded in Errors rather than returned.
func Take(ctx context.Context, f Fetcher, target string) Snapshot {
	snap := Snapshot{URL: target, Headers: map[string]string{}}

	resp, err := f.Fetch(ctx, engine.Request{Method: http.MethodGet, URL: target})
	if err != nil {
		snap.Errors = append(snap.Errors, fmt.Sprintf("request failed: %v", err))
		return snap
	}

	for _, h := range identifyingHeaders {
		if v := resp.Header.Get(h); v != "" {
			snap.Headers[h] = v
		}
	}
	snap.Cookies = Cookies(resp.Header)

	if engine.IsHTML(resp.Header, resp.Body) {
		snap.Scripts, snap.Hints = scriptSources(resp.Body, resp.URL)
	}

	text := string(resp.Body)
	for _, sig := range errorBanners {
		if strings.Contains(text, sig) {
			snap.Errors = append(snap.Errors, "signature: "+sig)
		}
	}
	return snap
}

// Cookies reads Set-Cookie headers into flag summaries.
func Cookies(h http.Header) []Cookie {
	var out []Cookie
	for _, c := range (&http.Response{Header: h}).Cookies() {
		out = append(out, Cookie{
			Name:     c.Name,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			SameSite: sameSiteName(c.SameSite),
		})
	}
	return out
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	case http.SameSiteDefaultMode:
		return "Default"
	default:
		return ""
	}
}

func scriptSources(body []byte, base *url.URL) ([]string, []string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil
	}
	var scripts, hints []string
	seenHint := map[string]bool{}
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if ref, err := url.Parse(strings.TrimSpace(src)); err == nil && base != nil {
			src = base.ResolveReference(ref).String()
		}
		scripts = append(scripts, src)
		lower := strings.ToLower(src)
		for _, h := range frameworkHints {
			if strings.Contains(lower, h.marker) && !seenHint[h.name] {
				seenHint[h.name] = true
				hints = append(hints, h.name)
			}
		}
	})
	return scripts, hints
}
