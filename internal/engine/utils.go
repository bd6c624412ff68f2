package engine

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxDecodedBodyBytes = 4 << 20

// DecodeResponseBody reads a possibly gzip-encoded body, capped at 4 MiB.
func DecodeResponseBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxDecodedBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxDecodedBodyBytes {
		body = body[:maxDecodedBodyBytes]
	}
	return body, nil
}

// IsHTML reports whether a response looks like markup worth extracting from.
func IsHTML(h http.Header, body []byte) bool {
	ct := strings.ToLower(h.Get("Content-Type"))
	if strings.Contains(ct, "html") {
		return true
	}
	if ct != "" {
		return false
	}
	return strings.Contains(strings.ToLower(string(body[:min(len(body), 512)])), "<html")
}
