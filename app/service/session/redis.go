package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

const (
	sessionPrefix = "recruitbot:session:"
	lockPrefix    = "recruitbot:lock:"

	lockTTL       = 2 * time.Minute
	lockRetryWait = 50 * time.Millisecond
)

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		id = DefaultID
	}

	data, err := s.client.Get(ctx, sessionPrefix+id).Bytes()
	if err == redis.Nil {
		return NewSession(id), nil
	}
	if err != nil {
		return nil, oops.In("session").With("id", id).Wrapf(err, "redis get")
	}

	var sess Session
	if err = json.Unmarshal(data, &sess); err != nil {
		return nil, oops.In("session").With("id", id).Wrapf(err, "failed to decode session")
	}

	return &sess, nil
}

func (s *RedisStore) Put(ctx context.Context, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	sess.UpdatedAt = time.Now()

	data, err := json.Marshal(sess)
	if err != nil {
		return oops.In("session").With("id", sess.ID).Wrapf(err, "failed to encode session")
	}

	if err = s.client.Set(ctx, sessionPrefix+sess.ID, data, s.ttl).Err(); err != nil {
		return oops.In("session").With("id", sess.ID).Wrapf(err, "redis set")
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionPrefix+id).Err(); err != nil {
		return oops.In("session").With("id", id).Wrapf(err, "redis del")
	}

	return nil
}

// RedisLocker serializes turns for a session across instances with a
// SET NX lease. The lease is renewed every ttl/3 while held and expires on
// its own if the holder dies.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, ttl: lockTTL}
}

func (l *RedisLocker) Lock(ctx context.Context, id string) (func(), error) {
	key := lockPrefix + id
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(context.WithoutCancel(ctx), key, token, l.ttl).Result()
		if err != nil {
			return nil, oops.In("session").With("id", id).Wrapf(err, "redis setnx")
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, oops.In("session").With("id", id).Wrap(ErrLocked)
		case <-time.After(lockRetryWait):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	go l.renew(key, token, stop, done)

	return func() {
		select {
		case <-stop:
			return
		default:
			close(stop)
		}
		<-done

		// the caller's context may already be done at unlock time
		unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = unlockScript.Run(unlockCtx, l.client, []string{key}, token).Err()
	}, nil
}

func (l *RedisLocker) renew(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			renewed, err := renewScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()

			if err != nil {
				slog.Warn("Failed to renew session lock", "key", key, "error", err)
				continue
			}
			if renewed == 0 {
				slog.Warn("Session lock lost", "key", key)
				return
			}
		}
	}
}
