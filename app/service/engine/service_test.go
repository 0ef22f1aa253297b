package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"recruitbot/app/service/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingTransport struct {
	err error
}

func (b *blockingTransport) Run(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}

	<-ctx.Done()

	return nil
}

type countingReconciler struct {
	calls     atomic.Int32
	olderThan atomic.Int64
}

func (c *countingReconciler) Reconcile(_ context.Context, olderThan time.Duration) (int, error) {
	c.calls.Add(1)
	c.olderThan.Store(int64(olderThan))

	return 0, nil
}

func newTestService(transport Transport, reconciler Reconciler) *Service {
	return &Service{
		transport:  transport,
		sessions:   session.NewMemoryService(time.Minute, 10*time.Millisecond),
		reconciler: reconciler,
		ttl:        time.Minute,
		interval:   10 * time.Millisecond,
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	reconciler := &countingReconciler{}
	svc := newTestService(&blockingTransport{}, reconciler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- svc.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return reconciler.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}

	assert.Equal(t, int64(time.Minute), reconciler.olderThan.Load())
}

func TestRun_TransportFailure(t *testing.T) {
	errListen := errors.New("listen failed")
	svc := newTestService(&blockingTransport{err: errListen}, &countingReconciler{})

	err := svc.Run(context.Background())
	assert.ErrorIs(t, err, errListen)
}
