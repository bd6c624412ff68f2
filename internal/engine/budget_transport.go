package engine

import (
	"errors"
	"net/http"
	"sync/atomic"
)

var ErrRequestBudgetExceeded = errors.New("request budget exceeded")

// RequestBudgetTransport caps the number of requests one crawl-and-probe run
// may send. Max <= 0 disables the cap.
type RequestBudgetTransport struct {
	Base      http.RoundTripper
	Max       int64
	requested atomic.Int64
}

func (t *RequestBudgetTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if next := t.requested.Add(1); t.Max > 0 && next > t.Max {
		return nil, ErrRequestBudgetExceeded
	}
	return baseTransport(t.Base).RoundTrip(req)
}

// Used reports how many requests were attempted, including rejected ones.
func (t *RequestBudgetTransport) Used() int64 {
	return t.requested.Load()
}

func baseTransport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}
