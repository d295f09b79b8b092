// Package lock provides a short-lived Redis lock that rejects duplicate
// in-flight booking attempts for the same hall slot before they reach
// the database.  The database row lock taken by the booking transaction
// remains the source of truth; this lock only sheds load.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so a
// lock that expired and was re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// SlotLock acquires per-slot locks with SET NX PX.  A nil *SlotLock or
// one without a client always grants the lock.
type SlotLock struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewSlotLock returns a lock using client.  ttl bounds how long a crashed
// holder can block the slot.
func NewSlotLock(client *redis.Client, ttl time.Duration) *SlotLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &SlotLock{client: client, ttl: ttl, prefix: "lock"}
}

func (l *SlotLock) key(hallID uint64, start time.Time) string {
	return fmt.Sprintf("%s:hall:%d:slot:%d", l.prefix, hallID, start.Unix())
}

// Acquire tries to take the lock for (hallID, start).  When acquired is
// false another request holds it.  release is always safe to call.
func (l *SlotLock) Acquire(ctx context.Context, hallID uint64, start time.Time) (release func(), acquired bool, err error) {
	noop := func() {}
	if l == nil || l.client == nil {
		return noop, true, nil
	}
	key := l.key(hallID, start)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return noop, false, err
	}
	if !ok {
		return noop, false, nil
	}
	return func() {
		// The request context may already be cancelled here.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, true, nil
}
