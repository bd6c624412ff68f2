package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/MOYARU/crawlprobe/internal/config"
	"github.com/MOYARU/crawlprobe/internal/engine"
)

// PageFetcher is the part of engine.Fetcher the crawler needs.
type PageFetcher interface {
	Fetch(ctx context.Context, r engine.Request) (*engine.Snapshot, error)
}

// PageObserver is notified once per page handed out by the queue.
type PageObserver interface {
	ObservePage()
}

type Options struct {
	Mode        config.CrawlMode
	MaxDepth    int
	MaxPages    int
	Concurrency int
	Scope       Scope
	Observer    PageObserver
	Logger      *slog.Logger
}

// Page is one fetch attempt made by the crawl.
type Page struct {
	URL    string `json:"url"`
	Depth  int    `json:"depth"`
	Status int    `json:"status,omitempty"`
	Forms  int    `json:"forms,omitempty"`
}

type Result struct {
	Pages []Page
	Forms []Form
}

type Crawler struct {
	fetcher PageFetcher
	opts    Options
	queue   *Queue

	mu       sync.Mutex
	pages    []Page
	forms    []Form
	formKeys map[string]struct{}
}

func New(f PageFetcher, opts Options) *Crawler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Mode == "" {
		opts.Mode = config.BreadthFirst
	}
	return &Crawler{
		fetcher:  f,
		opts:     opts,
		queue:    NewQueue(opts.Mode, opts.MaxDepth, opts.MaxPages),
		formKeys: make(map[string]struct{}),
	}
}

// Run crawls from seed until the queue is exhausted, the page budget is
// spent or ctx is cancelled. Fetch failures skip the page.
func (c *Crawler) Run(ctx context.Context, seed string) (Result, error) {
	canon, err := Normalize(seed, nil)
	if err != nil {
		return Result{}, err
	}

	var seeds []Entry
	if c.opts.Scope.Allows(canon) {
		seeds = append(seeds, Entry{URL: canon})
	}
	u, _ := url.Parse(canon)
	for _, root := range c.opts.Scope.Roots(u.Scheme) {
		if root != canon {
			seeds = append(seeds, Entry{URL: root})
		}
	}
	if len(seeds) == 0 {
		return Result{}, errors.New("no seed URL is in scope")
	}
	c.queue.Push(seeds...)

	var wg sync.WaitGroup
	for i := 0; i < c.opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				e, ok := c.queue.Next(ctx)
				if !ok {
					return
				}
				c.visit(ctx, e)
				c.queue.Done()
			}
		}()
	}
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	return Result{
		Pages: append([]Page(nil), c.pages...),
		Forms: append([]Form(nil), c.forms...),
	}, ctx.Err()
}

func (c *Crawler) visit(ctx context.Context, e Entry) {
	if c.opts.Observer != nil {
		c.opts.Observer.ObservePage()
	}
	log := c.opts.Logger.With("url", e.URL, "depth", e.Depth)

	snap, err := c.fetcher.Fetch(ctx, engine.Request{Method: http.MethodGet, URL: e.URL})
	if err != nil {
		log.Debug("skipping page", "error", err)
		c.record(Page{URL: e.URL, Depth: e.Depth}, nil)
		return
	}

	page := Page{URL: e.URL, Depth: e.Depth, Status: snap.Status}
	if isRedirect(snap.Status) {
		c.record(page, nil)
		loc := snap.Header.Get("Location")
		target, err := Normalize(loc, snap.URL)
		if err != nil || !c.opts.Scope.Allows(target) || isStaticAsset(target) {
			log.Debug("redirect not followed", "location", loc)
			return
		}
		c.queue.Push(Entry{URL: target, Depth: e.Depth + 1})
		return
	}
	if snap.Status >= http.StatusBadRequest || !engine.IsHTML(snap.Header, snap.Body) {
		c.record(page, nil)
		return
	}

	d := Extract(snap.Body, snap.URL)
	page.Forms = len(d.Forms)
	c.record(page, d.Forms)

	next := make([]Entry, 0, len(d.Links))
	for _, link := range d.Links {
		if !c.opts.Scope.Allows(link) || isStaticAsset(link) {
			continue
		}
		next = append(next, Entry{URL: link, Depth: e.Depth + 1})
	}
	c.queue.Push(next...)
	log.Debug("page crawled", "status", snap.Status, "links", len(next), "forms", len(d.Forms))
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func (c *Crawler) record(p Page, forms []Form) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = append(c.pages, p)
	for _, f := range forms {
		key := f.Key()
		if _, dup := c.formKeys[key]; dup {
			continue
		}
		c.formKeys[key] = struct{}{}
		c.forms = append(c.forms, f)
	}
}
