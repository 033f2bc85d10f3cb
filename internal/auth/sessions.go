package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionExpired means the session is unknown or idled out.
var ErrSessionExpired = errors.New("session expired")

// SessionStore tracks server-side sessions with a sliding idle timeout.
// Sessions are opened by the login collaborator, which writes
// "session:<jti>" with the idle timeout as TTL.
type SessionStore interface {
	// Touch extends an active session; ErrSessionExpired if there is none.
	Touch(ctx context.Context, sessionID string) error
	Close(ctx context.Context, sessionID string) error
}

const sessionKeyPrefix = "session:"

// RedisSessions keeps one key per session whose TTL is the idle timeout.
// Every authenticated request pushes the TTL forward; an idle session simply
// expires in Redis.
type RedisSessions struct {
	rdb  *redis.Client
	idle time.Duration
}

func NewRedisSessions(rdb *redis.Client, idle time.Duration) *RedisSessions {
	if idle <= 0 {
		idle = 60 * time.Minute
	}
	return &RedisSessions{rdb: rdb, idle: idle}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func (s *RedisSessions) Touch(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionExpired
	}
	ok, err := s.rdb.Expire(ctx, sessionKey(sessionID), s.idle).Result()
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if !ok {
		return ErrSessionExpired
	}
	return nil
}

// Close ends a session (logout).
func (s *RedisSessions) Close(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, sessionKey(sessionID)).Err()
}
