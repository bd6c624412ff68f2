package crawler

import (
	"net/url"
	"path"
	"strings"
)

// Scope decides which URLs a session may fetch or probe. An empty Prefixes
// list allows every path on Host.
type Scope struct {
	Host     string
	Prefixes []string
}

func NewScope(baseURL string, prefixes []string) (Scope, error) {
	canon, err := Normalize(baseURL, nil)
	if err != nil {
		return Scope{}, err
	}
	u, _ := url.Parse(canon)

	s := Scope{Host: u.Host}
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		s.Prefixes = append(s.Prefixes, p)
	}
	return s, nil
}

func (s Scope) Allows(raw string) bool {
	canon, err := Normalize(raw, nil)
	if err != nil {
		return false
	}
	u, err := url.Parse(canon)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Host, s.Host) {
		return false
	}
	if len(s.Prefixes) == 0 {
		return true
	}
	for _, p := range s.Prefixes {
		if strings.HasPrefix(u.Path, p) {
			return true
		}
	}
	return false
}

// Roots returns one seed URL per prefix, so a scope narrower than the base
// path still has somewhere to start.
func (s Scope) Roots(scheme string) []string {
	roots := make([]string, 0, len(s.Prefixes))
	for _, p := range s.Prefixes {
		roots = append(roots, (&url.URL{Scheme: scheme, Host: s.Host, Path: p}).String())
	}
	return roots
}

var staticAssetExt = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".webp": {}, ".ico": {},
	".pdf": {}, ".zip": {}, ".rar": {}, ".7z": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
	".css": {},
}

// isStaticAsset reports URLs that cannot contain links or forms.
func isStaticAsset(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}
	_, skip := staticAssetExt[strings.ToLower(path.Ext(u.Path))]
	return skip
}
