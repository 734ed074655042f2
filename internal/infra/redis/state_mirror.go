package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"quizboard-service/internal/domain"
)

// StateMirror writes the live game snapshot to Redis so operators can
// inspect a running classroom. Nothing reads it back into the game.
//
//	SET  {prefix}:state   <snapshot json>
//	HSET {prefix}:squares {studentID} {square}
type StateMirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStateMirror(client *redis.Client, prefix string, ttl time.Duration) *StateMirror {
	if prefix == "" {
		prefix = "quizboard"
	}
	return &StateMirror{client: client, prefix: prefix, ttl: ttl}
}

func (m *StateMirror) Mirror(ctx context.Context, snapshot domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, m.stateKey(), data, m.ttl)
	pipe.Del(ctx, m.squaresKey())
	if len(snapshot.Students) > 0 {
		fields := make([]interface{}, 0, len(snapshot.Students)*2)
		for _, s := range snapshot.Students {
			fields = append(fields, s.ID, strconv.Itoa(s.Square))
		}
		pipe.HSet(ctx, m.squaresKey(), fields...)
		if m.ttl > 0 {
			pipe.Expire(ctx, m.squaresKey(), m.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "mirror state")
	}
	return nil
}

func (m *StateMirror) stateKey() string {
	return m.prefix + ":state"
}

func (m *StateMirror) squaresKey() string {
	return m.prefix + ":squares"
}
