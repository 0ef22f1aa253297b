package conversation

import (
	"context"
	"log/slog"
	"time"

	"recruitbot/app/service/intentlog"
	"recruitbot/app/service/session"
	"recruitbot/app/util/mylog"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/oops"
)

// Reconcile releases tentative holds left behind by intents older than
// olderThan whose session no longer points at them, and puts back open
// entries lost along the way. It returns the number of intents closed.
func (s *Service) Reconcile(ctx context.Context, olderThan time.Duration) (int, error) {
	pending, err := s.intents.Pending(olderThan)
	if err != nil {
		return 0, err
	}

	closed := 0

	for _, intent := range pending {
		ok, err := s.reconcileIntent(ctx, intent)
		if err != nil {
			slog.WarnContext(ctx, "Failed to reconcile intent",
				"intent_id", intent.ID,
				"session_id", intent.SessionID,
				"error", err,
			)
			continue
		}

		if ok {
			closed++
		}
	}

	return closed, nil
}

func (s *Service) reconcileIntent(ctx context.Context, intent intentlog.Intent) (bool, error) {
	unlock, err := s.locker.Lock(ctx, intent.SessionID)
	if err != nil {
		return false, oops.In("conversation").Wrapf(err, "failed to lock session")
	}
	defer unlock()

	sess, err := s.store.Get(ctx, intent.SessionID)
	if err != nil {
		return false, err
	}

	if sess.HoldIntentID == intent.ID {
		return false, nil
	}

	held := slotsOf(intent.Holds)

	releaseErr := s.reservation.Release(ctx, held)
	s.recordHolds(ctx, intent.ID, held)

	if releaseErr != nil {
		return false, releaseErr
	}

	restored, err := s.reservation.RestoreMissing(ctx, slotsOf(intent.Candidates))
	if err != nil {
		return false, err
	}

	if err = s.intents.Complete(intent.ID); err != nil {
		return false, err
	}

	slog.InfoContext(ctx, "Released stale holds",
		"intent_id", intent.ID,
		"session_id", intent.SessionID,
		"holds", len(held),
		"restored", restored,
		mylog.Telegram(),
	)

	return true, nil
}

func slotsOf(holds []intentlog.Hold) []session.OfferedSlot {
	return pie.Map(holds, func(h intentlog.Hold) session.OfferedSlot {
		return session.OfferedSlot{ExternalID: h.EventID, Start: h.Start}
	})
}
