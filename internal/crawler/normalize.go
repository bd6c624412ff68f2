package crawler

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

var ErrUnsupportedURL = errors.New("unsupported URL")

var rejectedPrefixes = []string{"javascript:", "mailto:", "tel:", "data:"}

// Normalize resolves raw against base and returns its canonical form:
// lowercase scheme and host, no default port, no fragment, "/" for an empty
// path and query pairs sorted by key. Repeated keys keep their relative order.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string, base *url.URL) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, raw)
	}
	lower := strings.ToLower(raw)
	for _, p := range rejectedPrefixes {
		if strings.HasPrefix(lower, p) {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, raw)
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrUnsupportedURL)
	}
	u.Host = canonicalHost(u.Scheme, host, u.Port())

	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	if u.RawQuery != "" {
		u.RawQuery = sortQuery(u.RawQuery)
	}
	u.ForceQuery = false
	return u.String(), nil
}

// sortQuery orders query pairs by key, stable on ties. A query that does not
// decode cleanly (bad escape, ';' separator) keeps its pairs verbatim but is
// still ordered by the decoded key, falling back to the raw key.
func sortQuery(raw string) string {
	if parsed, err := url.ParseQuery(raw); err == nil {
		return parsed.Encode()
	}
	var pairs []string
	for _, p := range strings.Split(raw, "&") {
		if p != "" {
			pairs = append(pairs, p)
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return queryKey(pairs[i]) < queryKey(pairs[j])
	})
	return strings.Join(pairs, "&")
}

func queryKey(pair string) string {
	key, _, _ := strings.Cut(pair, "=")
	if decoded, err := url.QueryUnescape(key); err == nil {
		return decoded
	}
	return key
}

func canonicalHost(scheme, host, port string) string {
	switch {
	case port == "":
		return bracketIPv6(host)
	case scheme == "http" && port == "80":
		return bracketIPv6(host)
	case scheme == "https" && port == "443":
		return bracketIPv6(host)
	default:
		return net.JoinHostPort(host, port)
	}
}

func bracketIPv6(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}
