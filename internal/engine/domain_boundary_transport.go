package engine

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var ErrCrossDomain = errors.New("blocked cross-domain request")

// DomainBoundaryTransport refuses requests that leave the target's registrable
// domain. Extraction already filters by scope; this catches form actions
// and fingerprint targets pointing elsewhere.
type DomainBoundaryTransport struct {
	Base       http.RoundTripper
	RootDomain string
}

// RootDomainOf returns the eTLD+1 of host, or host itself for IPs and
// single-label names.
func RootDomainOf(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if net.ParseIP(host) != nil {
		return host
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return root
}

func (t *DomainBoundaryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := strings.ToLower(req.URL.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: empty host", ErrCrossDomain)
	}
	if allowed := strings.ToLower(t.RootDomain); allowed != "" {
		if host != allowed && !strings.HasSuffix(host, "."+allowed) && RootDomainOf(host) != allowed {
			return nil, fmt.Errorf("%w: %s (allowed root: %s)", ErrCrossDomain, host, allowed)
		}
	}
	return baseTransport(t.Base).RoundTrip(req)
}
