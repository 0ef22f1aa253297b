package engine

import (
	"context"
	"log/slog"
	"time"

	"recruitbot/app/config"
	"recruitbot/app/service/api"
	"recruitbot/app/service/conversation"
	"recruitbot/app/service/mcpserver"
	"recruitbot/app/service/session"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

type Transport interface {
	Run(ctx context.Context) error
}

type Reconciler interface {
	Reconcile(ctx context.Context, olderThan time.Duration) (int, error)
}

// Service runs the configured transport next to the background loops: the
// in-memory session reaper and the stale hold reconciler.
type Service struct {
	transport  Transport
	sessions   *session.Service
	reconciler Reconciler
	ttl        time.Duration
	interval   time.Duration
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	var transport Transport
	if cfg.Server.Mode == "mcp" {
		transport = do.MustInvoke[*mcpserver.Service](di)
	} else {
		transport = do.MustInvoke[*api.Service](di)
	}

	return &Service{
		transport:  transport,
		sessions:   do.MustInvoke[*session.Service](di),
		reconciler: do.MustInvoke[*conversation.Service](di),
		ttl:        cfg.Session.TTL,
		interval:   cfg.Session.CleanupInterval,
	}, nil
}

// Run blocks until ctx is done or the transport fails.
func (s *Service) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.transport.Run(ctx)
	})

	group.Go(func() error {
		s.sessions.RunCleanup(ctx)
		return nil
	})

	group.Go(func() error {
		s.runReconciler(ctx)
		return nil
	})

	return group.Wait()
}

func (s *Service) runReconciler(ctx context.Context) {
	s.reconcileOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reconcileOnce(ctx)
		}
	}
}

func (s *Service) reconcileOnce(ctx context.Context) {
	start := time.Now()

	closed, err := s.reconciler.Reconcile(ctx, s.ttl)
	if err != nil {
		slog.Error("Error reconciling holds", "error", err)
		return
	}

	if closed > 0 {
		slog.Info("Reconciled stale holds",
			"closed", closed,
			"duration", time.Since(start))
	}
}
