package report

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

var (
	reBearer    = regexp.MustCompile(`(?i)\b(bearer\s+)([a-z0-9\-\._~\+\/]+=*)`)
	reAPIKeyKV  = regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|token|secret|authorization)\s*[:=]\s*([^\s,;&]+)`)
	reLongToken = regexp.MustCompile(`\b[a-zA-Z0-9_\-]{24,}\b`)

	customMu  sync.RWMutex
	customRes []*regexp.Regexp
)

// SetRedactionPatterns installs extra patterns from configuration. Every
// pattern must compile.
func SetRedactionPatterns(patterns []string) error {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("redaction pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	customMu.Lock()
	customRes = compiled
	customMu.Unlock()
	return nil
}

// SanitizeText masks bearer tokens, key=value secrets and long opaque tokens
// in evidence text before it is printed or persisted.
func SanitizeText(s string) string {
	out := reBearer.ReplaceAllString(s, "${1}<redacted>")
	out = reAPIKeyKV.ReplaceAllString(out, "${1}=<redacted>")
	out = reLongToken.ReplaceAllStringFunc(out, func(tok string) string {
		return tok[:4] + "...<redacted>..." + tok[len(tok)-4:]
	})

	customMu.RLock()
	defer customMu.RUnlock()
	for _, re := range customRes {
		out = re.ReplaceAllString(out, "<redacted>")
	}
	return out
}

func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return SanitizeText(raw)
	}
	q := u.Query()
	for k := range q {
		if sensitiveName(k) {
			q.Set(k, "<redacted>")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SanitizeParams masks values of credential-like parameters. Probe payloads
// live in other fields and stay intact.
func SanitizeParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		if sensitiveName(k) {
			v = "<redacted>"
		}
		out[k] = v
	}
	return out
}

// Redacted returns a copy of f with credential-like parameter values masked
// in its params, request excerpt and URL query.
func Redacted(f Finding) Finding {
	switch v := f.(type) {
	case SQLiError:
		v.Common = v.Common.redacted()
		return v
	case SQLiBoolean:
		v.Common = v.Common.redacted()
		v.FalseParams = SanitizeParams(v.FalseParams)
		return v
	case SQLiTime:
		v.Common = v.Common.redacted()
		return v
	case XSSReflected:
		v.Common = v.Common.redacted()
		return v
	case CSRF:
		v.Common = v.Common.redacted()
		return v
	}
	return f
}

func (c Common) redacted() Common {
	c.Params = SanitizeParams(c.Params)
	c.URL = SanitizeURL(c.URL)
	c.Request = truncate(RequestLine(c.Method, c.URL, c.Params), excerptLen)
	return c
}

func sensitiveName(name string) bool {
	n := strings.ToLower(name)
	for _, marker := range []string{"token", "key", "secret", "auth", "session", "pass", "csrf", "xsrf"} {
		if strings.Contains(n, marker) {
			return true
		}
	}
	return false
}
