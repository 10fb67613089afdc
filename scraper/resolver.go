package scraper

import (
	"sync"
	"time"

	"github.com/use-agent/mirror/models"
)

// Resolution paths, also used as metric labels.
const (
	pathSuccess  = "success"
	pathHandler  = "handler_failure"
	pathSession  = "session_failure"
	pathRejected = "rejected"
)

// resolver accepts the first result offered for a crawl and ignores the
// rest. The success, handler-failure and session-failure paths all race
// through it.
type resolver struct {
	once   sync.Once
	done   chan struct{}
	result *models.CrawlResult
	path   string

	// onDrop observes late attempts; may be nil.
	onDrop func(path string)
}

func newResolver(onDrop func(path string)) *resolver {
	return &resolver{done: make(chan struct{}), onDrop: onDrop}
}

// resolve stamps CrawledAt and publishes res if no result was published
// yet. It reports whether res won.
func (r *resolver) resolve(res *models.CrawlResult, path string) bool {
	won := false
	r.once.Do(func() {
		res.CrawledAt = time.Now()
		r.result = res
		r.path = path
		close(r.done)
		won = true
	})
	if !won && r.onDrop != nil {
		r.onDrop(path)
	}
	return won
}

func (r *resolver) resolved() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// outcome returns the published result. It must only be called after done
// is closed.
func (r *resolver) outcome() (*models.CrawlResult, string) {
	<-r.done
	return r.result, r.path
}
