package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
)

// ReplayRepository caches completed replays in Redis and falls back to a
// loader on cache miss. Each replay is stored as JSON under replay:{slug}.
type ReplayRepository struct {
	client *redis.Client
	loader app.ReplayLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewReplayRepository(client *redis.Client, loader app.ReplayLoader, ttl time.Duration) *ReplayRepository {
	return &ReplayRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ReplayRepository) GetReplay(ctx context.Context, slug string) (domain.Replay, error) {
	if replay, ok := r.cached(ctx, slug); ok {
		return replay, nil
	}

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if replay, ok := r.cached(ctx, slug); ok {
			return replay, nil
		}

		replay, err := r.loader.LoadReplay(ctx, slug)
		if err != nil {
			return domain.Replay{}, err
		}
		if replay.Session.Status != domain.SessionCompleted {
			return replay, nil
		}

		data, err := json.Marshal(replay)
		if err != nil {
			return domain.Replay{}, errors.Wrap(err, "encode replay")
		}
		// best-effort fill
		_ = r.client.Set(ctx, r.key(slug), data, r.ttlWithJitter()).Err()
		return replay, nil
	})
	if err != nil {
		return domain.Replay{}, err
	}
	return result.(domain.Replay), nil
}

func (r *ReplayRepository) cached(ctx context.Context, slug string) (domain.Replay, bool) {
	raw, err := r.client.Get(ctx, r.key(slug)).Bytes()
	if err != nil || len(raw) == 0 {
		return domain.Replay{}, false
	}
	var replay domain.Replay
	if err := json.Unmarshal(raw, &replay); err != nil {
		return domain.Replay{}, false
	}
	return replay, true
}

func (r *ReplayRepository) Invalidate(ctx context.Context, slug string) error {
	return errors.Wrapf(r.client.Del(ctx, r.key(slug)).Err(), "invalidate replay %s", slug)
}

func (r *ReplayRepository) key(slug string) string {
	return "replay:" + slug
}

func (r *ReplayRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
