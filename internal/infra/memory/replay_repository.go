package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
)

// ReplayRepository caches completed replays with a TTL to avoid repeated
// store round trips. Active sessions are always read through.
type ReplayRepository struct {
	loader app.ReplayLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedReplay
}

type cachedReplay struct {
	replay    domain.Replay
	expiresAt time.Time
}

func NewReplayRepository(loader app.ReplayLoader, ttl time.Duration) *ReplayRepository {
	return &ReplayRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedReplay),
	}
}

func (r *ReplayRepository) GetReplay(ctx context.Context, slug string) (domain.Replay, error) {
	if replay, ok := r.cached(slug); ok {
		return replay, nil
	}

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		if replay, ok := r.cached(slug); ok {
			return replay, nil
		}

		replay, err := r.loader.LoadReplay(ctx, slug)
		if err != nil {
			return domain.Replay{}, err
		}
		if replay.Session.Status == domain.SessionCompleted && r.ttl > 0 {
			expiresAt := r.clock().Add(r.ttlWithJitter())
			r.mu.Lock()
			r.cache[slug] = cachedReplay{replay: replay, expiresAt: expiresAt}
			r.mu.Unlock()
		}
		return replay, nil
	})
	if err != nil {
		return domain.Replay{}, err
	}
	return result.(domain.Replay), nil
}

func (r *ReplayRepository) cached(slug string) (domain.Replay, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[slug]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Replay{}, false
	}
	return entry.replay, true
}

func (r *ReplayRepository) Invalidate(_ context.Context, slug string) error {
	r.mu.Lock()
	delete(r.cache, slug)
	r.mu.Unlock()
	return nil
}

func (r *ReplayRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
