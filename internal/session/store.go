// Package session persists per-applicant conversation state in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"applicant-screening/internal/models"

	"github.com/redis/go-redis/v9"
)

var ErrSessionStoreFailed = errors.New("SESSION_STORE_FAILED")

// RedisStore keeps one JSON document per applicant with no expiry; a session
// is pinned until explicitly reset.
type RedisStore struct {
	redis    *redis.Client
	keyspace string
}

func NewRedisStore(rdb *redis.Client, keyspace string) *RedisStore {
	if keyspace == "" {
		keyspace = "screening"
	}
	return &RedisStore{redis: rdb, keyspace: keyspace}
}

func (s *RedisStore) key(userID string) string {
	return s.keyspace + ":session:" + userID
}

// Load returns the stored state, or a fresh initial state if none exists.
func (s *RedisStore) Load(ctx context.Context, userID string) (*models.SessionState, error) {
	val, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.NewSessionState(userID), nil
		}
		return nil, fmt.Errorf("%w: load: %v", ErrSessionStoreFailed, err)
	}

	var state models.SessionState
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSessionStoreFailed, err)
	}
	if !state.Stage.Valid() {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrSessionStoreFailed, state.Stage)
	}
	if state.UploadedURLs == nil {
		state.UploadedURLs = map[models.DocumentType]string{}
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, state *models.SessionState) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrSessionStoreFailed, err)
	}
	if err := s.redis.Set(ctx, s.key(state.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: save: %v", ErrSessionStoreFailed, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrSessionStoreFailed, err)
	}
	return nil
}
