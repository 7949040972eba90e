package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxWatchRetries = 16

// RedisSessionStore keeps sessions as JSON values under "session:<id>".
// Updates use WATCH/MULTI so concurrent writers to one session never interleave.
// Open sessions expire after ttl; ending a session clears the expiry.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string { return "session:" + id }

func (r *RedisSessionStore) PutSession(ctx context.Context, s Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(s.ID), b, r.ttl).Err()
}

func decodeSession(b []byte, id string) (Session, error) {
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %q: %w", id, err)
	}
	return s, nil
}

func (r *RedisSessionStore) GetSession(ctx context.Context, id string) (Session, error) {
	b, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, fmt.Errorf("%w: session %q", ErrNotFound, id)
	}
	if err != nil {
		return Session{}, err
	}
	return decodeSession(b, id)
}

func (r *RedisSessionStore) UpdateSession(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	key := sessionKey(id)
	var out Session
	txf := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: session %q", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		s, err := decodeSession(b, id)
		if err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			return err
		}
		nb, err := json.Marshal(s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, nb, redis.KeepTTL)
			// ended sessions hold the result and outlive the idle TTL
			if s.Ended() {
				pipe.Persist(ctx, key)
			}
			return nil
		})
		if err == nil {
			out = s
		}
		return err
	}
	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Session{}, err
		}
		return out, nil
	}
	return Session{}, fmt.Errorf("update session %q: too much contention", id)
}
