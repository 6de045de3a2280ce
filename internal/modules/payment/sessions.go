// README: Checkout session store backed by Redis with TTL.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pedalfix/internal/types"
)

const sessionKeyPrefix = "payment:session:%s"

type SessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{redis: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, sessionRef string, repairID types.ID) error {
	return s.redis.Set(ctx, sessionKey(sessionRef), string(repairID), s.ttl).Err()
}

// Lookup returns the repair the session was opened for, and whether the
// session is still known. An expired or torn-down session is simply absent.
func (s *SessionStore) Lookup(ctx context.Context, sessionRef string) (types.ID, bool, error) {
	val, err := s.redis.Get(ctx, sessionKey(sessionRef)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return types.ID(val), true, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionRef string) error {
	return s.redis.Del(ctx, sessionKey(sessionRef)).Err()
}

func sessionKey(ref string) string {
	return fmt.Sprintf(sessionKeyPrefix, ref)
}
