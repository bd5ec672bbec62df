package quiz

import (
	"slices"
	"sync"
	"time"

	"github.com/victornm/quizbot/internal/domain"
)

// recentResults keeps the results of torn down games for a while, until the
// archive has them.
type recentResults struct {
	retention time.Duration
	now       func() time.Time

	mu    sync.Mutex
	games map[string]finishedGame
}

type finishedGame struct {
	results []domain.Result
	at      time.Time
}

func newRecentResults(retention time.Duration) *recentResults {
	return &recentResults{
		retention: retention,
		now:       time.Now,
		games:     make(map[string]finishedGame),
	}
}

func (r *recentResults) put(id string, results []domain.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, g := range r.games {
		if now.Sub(g.at) > r.retention {
			delete(r.games, k)
		}
	}
	r.games[id] = finishedGame{results: slices.Clone(results), at: now}
}

func (r *recentResults) get(id string) ([]domain.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok || r.now().Sub(g.at) > r.retention {
		return nil, false
	}
	return slices.Clone(g.results), true
}
