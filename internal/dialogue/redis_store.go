package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultSessionTTL = 24 * time.Hour

// RedisStore is a SessionStore backed by Redis, for hosts that want sessions
// to survive a process restart. Each session is one JSON value with a TTL.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("dialogue: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("advisor.internal.dialogue.sessions")
	}
	return &RedisStore{redis: client, ttl: ttl, tracer: tracer}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Create persists a new session.
func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	return s.write(ctx, "dialogue.create_session", sess)
}

// Update persists a mutated session and refreshes its TTL.
func (s *RedisStore) Update(ctx context.Context, sess *Session) error {
	return s.write(ctx, "dialogue.update_session", sess)
}

func (s *RedisStore) write(ctx context.Context, span string, sess *Session) error {
	ctx, sp := s.tracer.Start(ctx, span)
	defer sp.End()

	data, err := json.Marshal(sess)
	if err != nil {
		sp.RecordError(err)
		return fmt.Errorf("dialogue: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		sp.RecordError(err)
		return fmt.Errorf("dialogue: failed to persist session: %w", err)
	}
	return nil
}

// Get loads a session by id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, sp := s.tracer.Start(ctx, "dialogue.load_session")
	defer sp.End()

	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		sp.RecordError(err)
		return nil, fmt.Errorf("dialogue: failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		sp.RecordError(err)
		return nil, fmt.Errorf("dialogue: failed to decode session: %w", err)
	}
	return &sess, nil
}
