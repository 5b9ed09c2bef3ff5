package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token. A turn
// that outlived the TTL must not drop a lock another turn has since taken.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// TurnLock guards a single question against concurrent double-submission.
// The key includes the question index, so once a turn advances the index the
// next question is immediately lockable.
type TurnLock struct {
	redis    *redis.Client
	keyspace string
	ttl      time.Duration
}

func NewTurnLock(rdb *redis.Client, keyspace string, ttl time.Duration) *TurnLock {
	if keyspace == "" {
		keyspace = "screening"
	}
	return &TurnLock{redis: rdb, keyspace: keyspace, ttl: ttl}
}

func (l *TurnLock) key(userID, jobID string, questionIndex int) string {
	return fmt.Sprintf("%s:turn:%s:%s:%d", l.keyspace, userID, jobID, questionIndex)
}

// Acquire reports whether the caller now holds the lock. The returned release
// func is a no-op when the lock was not acquired.
func (l *TurnLock) Acquire(ctx context.Context, userID, jobID string, questionIndex int) (bool, func(), error) {
	key := l.key(userID, jobID, questionIndex)
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return false, func() {}, fmt.Errorf("%w: acquire turn lock: %v", ErrSessionStoreFailed, err)
	}
	if !ok {
		return false, func() {}, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.redis, []string{key}, token).Err()
	}
	return true, release, nil
}
