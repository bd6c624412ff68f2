package probe

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MOYARU/crawlprobe/internal/crawler"
	"github.com/MOYARU/crawlprobe/internal/engine"
	"github.com/MOYARU/crawlprobe/internal/fingerprint"
	"github.com/MOYARU/crawlprobe/internal/report"
)

// StateChanging reports whether a form method can alter server state.
func StateChanging(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, "":
		return false
	}
	return true
}

// TokenField returns the first anti-CSRF token input of a form.
func TokenField(form crawler.Form) (string, bool) {
	for _, name := range form.Inputs {
		if isProtectedField(name) {
			return name, true
		}
	}
	return "", false
}

func csrfConfidence(signals int) float64 {
	return math.Min(0.9, 0.3+0.15*float64(signals-1))
}

// probeCSRF gathers every CSRF signal of a form into one finding: a missing
// or static token across two loads of the source page, acceptance of a
// submission without Origin/Referer, and cookies lacking Secure or SameSite.
func (r *formRun) probeCSRF(ctx context.Context) {
	var signals []string
	tokenName, hasToken := TokenField(r.form)
	if !hasToken {
		signals = append(signals, "form has no anti-CSRF token field")
	}

	var cookies []fingerprint.Cookie
	first, err1 := r.e.fetcher.Fetch(ctx, engine.Request{Method: http.MethodGet, URL: r.form.SourceURL})
	second, err2 := r.e.fetcher.Fetch(ctx, engine.Request{Method: http.MethodGet, URL: r.form.SourceURL})
	if err1 == nil {
		cookies = append(cookies, fingerprint.Cookies(first.Header)...)
	}
	if hasToken && err1 == nil && err2 == nil {
		v1, ok1 := tokenValue(first, r.form, tokenName)
		v2, ok2 := tokenValue(second, r.form, tokenName)
		switch {
		case ok1 && !ok2:
			signals = append(signals, fmt.Sprintf("token field %s absent on second page load", tokenName))
		case ok1 && ok2 && v1 == v2:
			signals = append(signals, fmt.Sprintf("token field %s not rotated between page loads", tokenName))
		}
	}

	submit, err := r.send(ctx, Baseline(r.form), nil)
	if err == nil {
		if submit.Status >= 200 && submit.Status < 400 {
			signals = append(signals, fmt.Sprintf("submission without Origin/Referer accepted (status %d)", submit.Status))
		}
		cookies = append(cookies, fingerprint.Cookies(submit.Header)...)
	}
	signals = append(signals, cookieSignals(cookies)...)

	if len(signals) == 0 {
		return
	}
	common := r.common(report.KindCSRF, Baseline(r.form), 2, 2, csrfConfidence(len(signals)))
	if err1 == nil {
		common.Control = summarize(first)
	}
	if err == nil {
		common.Test = summarize(submit)
	}
	r.e.report(report.CSRF{Common: common, TokenField: tokenName, Signals: signals})
}

func cookieSignals(cookies []fingerprint.Cookie) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range cookies {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		var missing []string
		if !c.Secure {
			missing = append(missing, "Secure")
		}
		if c.SameSite == "" || c.SameSite == "Default" {
			missing = append(missing, "SameSite")
		}
		if len(missing) > 0 {
			out = append(out, fmt.Sprintf("cookie %s set without %s", c.Name, strings.Join(missing, "/")))
		}
	}
	return out
}

// tokenValue re-reads the form from a fresh copy of its source page and
// returns the current value of the token field.
func tokenValue(page *engine.Snapshot, form crawler.Form, field string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return "", false
	}
	var value string
	var found bool
	doc.Find("form").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !sameForm(s, page.URL, form) {
			return true
		}
		input := s.Find(fmt.Sprintf(`[name=%q]`, field)).First()
		if input.Length() == 0 {
			return false
		}
		value, found = input.Attr("value")
		if !found {
			value, found = "", true
		}
		return false
	})
	return value, found
}

func sameForm(s *goquery.Selection, pageURL *url.URL, form crawler.Form) bool {
	method := strings.ToUpper(strings.TrimSpace(s.AttrOr("method", "GET")))
	if method == "" {
		method = "GET"
	}
	if method != form.Method {
		return false
	}
	action := strings.TrimSpace(s.AttrOr("action", ""))
	if action == "" {
		action = pageURL.String()
	}
	canon, err := crawler.Normalize(action, pageURL)
	if err != nil {
		return false
	}
	return canon == form.Action
}
