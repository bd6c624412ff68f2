package report

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Curl renders a reproducible curl command for a probe request. Params go in
// the query string for GET and as a form body otherwise.
func Curl(method, endpoint string, params map[string]string, headers map[string]string) string {
	method = strings.ToUpper(method)
	if method == "" {
		method = http.MethodGet
	}
	parts := []string{"curl"}
	if method != http.MethodGet {
		parts = append(parts, "-X", method)
	}

	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		parts = append(parts, "-H", shellQuote(k+": "+headers[k]))
	}

	encoded := encodeParams(params)
	switch {
	case encoded == "":
		parts = append(parts, shellQuote(endpoint))
	case method == http.MethodGet:
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		parts = append(parts, shellQuote(endpoint+sep+encoded))
	default:
		parts = append(parts, "--data", shellQuote(encoded), shellQuote(endpoint))
	}
	return strings.Join(parts, " ")
}

// RequestLine is the short request form kept in findings.
func RequestLine(method, endpoint string, params map[string]string) string {
	encoded := encodeParams(params)
	if strings.ToUpper(method) == http.MethodGet && encoded != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		return method + " " + endpoint + sep + encoded
	}
	if encoded == "" {
		return method + " " + endpoint
	}
	return method + " " + endpoint + " body=" + encoded
}

func encodeParams(params map[string]string) string {
	v := url.Values{}
	for k, val := range params {
		v.Set(k, val)
	}
	return v.Encode()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
