package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"teamhub/pkg/platform/sentinel"
	"teamhub/pkg/requestcontext"
)

var redisOpDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "teamhub_session_redis_op_duration_ms",
	Help:    "Latency of session persistence operations against Redis in milliseconds",
	Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
}, []string{"op"})

const defaultRedisKey = "teamhub:session:default"

// RedisStore persists the session as one JSON value under a single key. The key
// expires together with the session, so a stale login disappears on its own.
type RedisStore struct {
	client *redis.Client
	key    string
}

// RedisStoreOption configures a RedisStore instance.
type RedisStoreOption func(*RedisStore)

// WithProfile namespaces the key so several profiles can share one Redis.
func WithProfile(profile string) RedisStoreOption {
	return func(s *RedisStore) {
		if profile != "" {
			s.key = "teamhub:session:" + profile
		}
	}
}

// NewRedis constructs a Redis-backed persister.
func NewRedis(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		key:    defaultRedisKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func observe(op string, start time.Time) {
	redisOpDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}

func (s *RedisStore) Load(ctx context.Context) (Session, error) {
	defer observe("load", time.Now())

	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get session: %w: %w", sentinel.ErrUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// Save stores the session with a TTL equal to its remaining lifetime. Saving an
// already-expired session returns sentinel.ErrExpired and stores nothing.
func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	defer observe("save", time.Now())

	ttl := sess.ExpiresAt.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	defer observe("delete", time.Now())

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
