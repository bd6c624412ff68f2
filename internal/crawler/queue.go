package crawler

import (
	"context"
	"slices"
	"sync"

	"github.com/MOYARU/crawlprobe/internal/config"
)

// Entry is one pending fetch. URL is canonical.
type Entry struct {
	URL   string
	Depth int
}

// Queue owns the frontier and the visited set of one crawl session.
// Workers call Next, fetch, Push what they found, then Done.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	mode     config.CrawlMode
	maxDepth int
	maxPages int

	pending  []Entry
	visited  map[string]struct{}
	handed   int
	inflight int
}

func NewQueue(mode config.CrawlMode, maxDepth, maxPages int) *Queue {
	q := &Queue{
		mode:     mode,
		maxDepth: maxDepth,
		maxPages: maxPages,
		visited:  make(map[string]struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends one discovery step. In DFS mode the step is reversed so the
// first discovered sibling is popped first.
func (q *Queue) Push(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	step := make([]Entry, 0, len(entries))
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range entries {
		if e.Depth > q.maxDepth {
			continue
		}
		if _, seen := q.visited[e.URL]; seen {
			continue
		}
		step = append(step, e)
	}
	if q.mode == config.DepthFirst {
		slices.Reverse(step)
	}
	q.pending = append(q.pending, step...)
	q.cond.Broadcast()
}

// Next hands out the next unvisited entry within the depth bound. It blocks
// while the frontier is empty but other entries are still being processed,
// and returns false once the page budget is spent, the crawl is exhausted or
// ctx is cancelled.
func (q *Queue) Next(ctx context.Context) (Entry, bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if ctx.Err() != nil || q.handed >= q.maxPages {
			q.cond.Broadcast()
			return Entry{}, false
		}
		if len(q.pending) == 0 {
			if q.inflight == 0 {
				q.cond.Broadcast()
				return Entry{}, false
			}
			q.cond.Wait()
			continue
		}

		var e Entry
		if q.mode == config.DepthFirst {
			e = q.pending[len(q.pending)-1]
			q.pending = q.pending[:len(q.pending)-1]
		} else {
			e = q.pending[0]
			q.pending = q.pending[1:]
		}
		if e.Depth > q.maxDepth {
			continue
		}
		if _, seen := q.visited[e.URL]; seen {
			continue
		}
		q.visited[e.URL] = struct{}{}
		q.handed++
		q.inflight++
		return e, true
	}
}

// Done releases an entry handed out by Next.
func (q *Queue) Done() {
	q.mu.Lock()
	q.inflight--
	q.cond.Broadcast()
	q.mu.Unlock()
}

func (q *Queue) Visited(u string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, seen := q.visited[u]
	return seen
}

// Handed is the number of entries given out so far, one per fetch attempt.
func (q *Queue) Handed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handed
}
