package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOYARU/crawlprobe/internal/config"
	"github.com/MOYARU/crawlprobe/internal/engine"
)

// site serves a small link graph and records every path it was asked for.
type site struct {
	mu        sync.Mutex
	hits      []string
	pages     map[string]string
	redirects map[string]string
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits = append(s.hits, r.URL.Path)
	s.mu.Unlock()
	if to, ok := s.redirects[r.URL.Path]; ok {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	body, ok := s.pages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

func (s *site) requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hits...)
}

func newCrawler(t *testing.T, srvURL string, opts Options) *Crawler {
	t.Helper()
	if opts.Scope.Host == "" {
		scope, err := NewScope(srvURL, nil)
		require.NoError(t, err)
		opts.Scope = scope
	}
	f := engine.NewFetcher(engine.NewHTTPClient(engine.ClientOptions{Timeout: 2 * time.Second}), nil)
	return New(f, opts)
}

func TestCrawlVisitsEachPageOnce(t *testing.T) {
	s := &site{pages: map[string]string{
		"/":  `<a href="/a?y=2&x=1">a</a><a href="/a?x=1&y=2#top">a again</a><a href="/b">b</a>`,
		"/a": `<a href="/">home</a><a href="/b">b</a>`,
		"/b": `<a href="/a?x=1&y=2">a</a>`,
	}}
	srv := httptest.NewServer(s)
	defer srv.Close()

	c := newCrawler(t, srv.URL, Options{MaxDepth: 5, MaxPages: 50, Concurrency: 3})
	res, err := c.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Len(t, res.Pages, 3)
	assert.ElementsMatch(t, []string{"/", "/a", "/b"}, s.requested())
}

func TestCrawlDedupsMalformedQueries(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.URL.Path]++
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/" {
			fmt.Fprint(w, `<a href="/p?a=%zz&b=1">1</a><a href="/p?b=1&a=%zz">2</a>`)
			return
		}
		fmt.Fprint(w, `leaf`)
	}))
	defer srv.Close()

	c := newCrawler(t, srv.URL, Options{MaxDepth: 2, MaxPages: 10})
	_, err := c.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, seen["/p"], "/p fetched %d times", seen["/p"])
}

func TestCrawlDepthBound(t *testing.T) {
	s := &site{pages: map[string]string{
		"/":   `<a href="/d1">1</a>`,
		"/d1": `<a href="/d2">2</a>`,
		"/d2": `<a href="/d3">3</a>`,
		"/d3": `end`,
	}}
	srv := httptest.NewServer(s)
	defer srv.Close()

	c := newCrawler(t, srv.URL, Options{MaxDepth: 1, MaxPages: 50})
	res, err := c.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	for _, p := range res.Pages {
		assert.LessOrEqual(t, p.Depth, 1)
	}
	assert.Equal(t, []string{"/", "/d1"}, s.requested())
}

func TestCrawlPageBound(t *testing.T) {
	var links strings.Builder
	pages := map[string]string{}
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&links, `<a href="/p%d">p</a>`, i)
		pages[fmt.Sprintf("/p%d", i)] = "leaf"
	}
	pages["/"] = links.String()
	s := &site{pages: pages}
	srv := httptest.NewServer(s)
	defer srv.Close()

	for _, workers := range []int{1, 4} {
		s.mu.Lock()
		s.hits = nil
		s.mu.Unlock()

		c := newCrawler(t, srv.URL, Options{MaxDepth: 3, MaxPages: 5, Concurrency: workers})
		res, err := c.Run(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Len(t, res.Pages, 5, "workers=%d", workers)
		assert.Len(t, s.requested(), 5, "workers=%d", workers)
	}
}

func TestCrawlScopeContainment(t *testing.T) {
	s := &site{pages: map[string]string{
		"/app":           `<a href="/app/one">1</a><a href="/admin">x</a><a href="https://other.example/app">x</a>`,
		"/app/one":       `<form action="/app/save" method="post"><input name="title"></form>`,
		"/admin":         `should not be fetched`,
		"/app/style.css": `asset`,
	}}
	srv := httptest.NewServer(s)
	defer srv.Close()

	scope, err := NewScope(srv.URL, []string{"/app"})
	require.NoError(t, err)
	c := newCrawler(t, srv.URL, Options{MaxDepth: 3, MaxPages: 50, Scope: scope})
	res, err := c.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	for _, p := range s.requested() {
		assert.True(t, strings.HasPrefix(p, "/app"), "fetched out-of-scope path %s", p)
	}
	require.Len(t, res.Forms, 1)
	assert.Equal(t, "POST", res.Forms[0].Method)
	assert.Equal(t, []string{"title"}, res.Forms[0].Inputs)
	assert.True(t, strings.HasSuffix(res.Forms[0].Action, "/app/save"))
}

func TestCrawlSkipsFailedPages(t *testing.T) {
	s := &site{pages: map[string]string{
		"/":   `<a href="/missing">gone</a><a href="/ok">ok</a>`,
		"/ok": `<form><input name="q"></form>`,
	}}
	srv := httptest.NewServer(s)
	defer srv.Close()

	c := newCrawler(t, srv.URL, Options{MaxDepth: 2, MaxPages: 10})
	res, err := c.Run(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, res.Pages, 3)
	require.Len(t, res.Forms, 1)
	assert.Equal(t, "GET", res.Forms[0].Method)
}

func TestCrawlCancelled(t *testing.T) {
	s := &site{pages: map[string]string{"/": `<a href="/a">a</a>`}}
	srv := httptest.NewServer(s)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newCrawler(t, srv.URL, Options{MaxDepth: 2, MaxPages: 10})
	_, err := c.Run(ctx, srv.URL)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.requested())
}

func TestNewDefaultsMode(t *testing.T) {
	c := New(nil, Options{MaxPages: 1})
	assert.Equal(t, config.BreadthFirst, c.opts.Mode)
	assert.Equal(t, 1, c.opts.Concurrency)
}

func TestCrawlRedirectStaysInScope(t *testing.T) {
	s := &site{
		pages: map[string]string{
			"/app":        `<a href="/app/go">go</a><a href="/app/old">old</a>`,
			"/app/new":    `moved here`,
			"/admin/nuke": `should not be fetched`,
		},
		redirects: map[string]string{
			"/app/go":  "/admin/nuke",
			"/app/old": "/app/new",
		},
	}
	srv := httptest.NewServer(s)
	defer srv.Close()

	scope, err := NewScope(srv.URL, []string{"/app"})
	require.NoError(t, err)
	c := newCrawler(t, srv.URL, Options{MaxDepth: 3, MaxPages: 20, Scope: scope})
	res, err := c.Run(context.Background(), srv.URL+"/app")
	require.NoError(t, err)

	hits := s.requested()
	assert.NotContains(t, hits, "/admin/nuke")
	assert.Contains(t, hits, "/app/new")
	for _, p := range res.Pages {
		assert.True(t, scope.Allows(p.URL), "fetched out-of-scope %s", p.URL)
		if strings.HasSuffix(p.URL, "/app/go") {
			assert.Equal(t, http.StatusFound, p.Status)
		}
	}
}
