package session

import (
	"context"
	"log/slog"
	"time"

	"recruitbot/app/config"

	"github.com/go-redis/redis/v8"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const pingTimeout = 2 * time.Second

var _ do.Shutdownable = (*Service)(nil)

// Service bundles the configured Store and Locker.
type Service struct {
	Store
	Locker

	memory   *MemoryStore
	redis    *redis.Client
	interval time.Duration
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	switch cfg.Session.Store {
	case "memory":
		return NewMemoryService(cfg.Session.TTL, cfg.Session.CleanupInterval), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})

		ctx, cancel := context.WithTimeout(do.MustInvoke[context.Context](di), pingTimeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			return nil, oops.In("session").With("addr", cfg.Session.RedisAddr).Wrapf(err, "failed to connect to redis")
		}

		return &Service{
			Store:    NewRedisStore(client, cfg.Session.TTL),
			Locker:   NewRedisLocker(client),
			redis:    client,
			interval: cfg.Session.CleanupInterval,
		}, nil
	default:
		return nil, oops.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

func NewMemoryService(ttl, interval time.Duration) *Service {
	store := NewMemoryStore(ttl)

	return &Service{
		Store:    store,
		Locker:   NewKeyedLocker(),
		memory:   store,
		interval: interval,
	}
}

// RunCleanup evicts expired in-memory sessions until ctx is done. Redis
// expires keys on its own, so there is nothing to do for that backend.
func (s *Service) RunCleanup(ctx context.Context) {
	if s.memory == nil {
		return
	}

	logger := slog.Default().With(slog.String("component", "session.cleanup"))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Cleanup stopping")
			return
		case <-ticker.C:
			start := time.Now()
			removed := s.memory.CleanupExpired()

			if removed > 0 {
				logger.InfoContext(ctx, "Cleaned up expired sessions",
					slog.Int("removed", removed),
					slog.Int("remaining", s.memory.Len()),
					slog.Duration("duration", time.Since(start)),
				)
			}
		}
	}
}

func (s *Service) Shutdown() error {
	if s.redis != nil {
		return s.redis.Close()
	}

	return nil
}
