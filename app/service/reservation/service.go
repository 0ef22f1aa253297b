package reservation

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"recruitbot/app/client/calendar"
	"recruitbot/app/config"
	"recruitbot/app/service/session"

	"github.com/samber/do"
	"github.com/samber/oops"
)

var ErrInvalidSelection = errors.New("selection out of range")

type BookingResult struct {
	Slot      session.OfferedSlot
	BookingID string
}

// Service turns open calendar entries into tentative holds and settles a
// held batch into one booking. None of the multi-event sequences are
// transactional: on error, slots already processed stay as they are and are
// reported through the slot slice, which is updated in place.
type Service struct {
	calendar       calendar.Client
	holdHours      float64
	openTitle      string
	tentativeTitle string
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(do.MustInvoke[calendar.Client](di), cfg.Schedule), nil
}

func NewService(client calendar.Client, cfg config.Schedule) *Service {
	return &Service{
		calendar:       client,
		holdHours:      cfg.HoldHours,
		openTitle:      cfg.OpenTitle,
		tentativeTitle: cfg.TentativeTitle,
	}
}

// OfferAndHold replaces each candidate's open entry with a tentative one and
// rewrites ExternalID to the hold. It returns how many candidates were held;
// on error candidates[:n] are tentative and the rest remain open.
func (s *Service) OfferAndHold(ctx context.Context, candidates []session.OfferedSlot) (int, error) {
	for i := range candidates {
		slot := &candidates[i]

		if err := s.calendar.DeleteEvent(ctx, slot.ExternalID); err != nil {
			return i, oops.In("reservation").
				With("external_id", slot.ExternalID, "held", i).
				Wrapf(err, "failed to remove open slot")
		}

		id, err := s.calendar.CreateEvent(ctx, slot.Start, s.holdHours, s.tentativeTitle)
		if err != nil {
			s.restoreOpen(ctx, slot)
			return i, oops.In("reservation").
				With("start", slot.Start, "held", i).
				Wrapf(err, "failed to create tentative hold")
		}

		slot.ExternalID = id
	}

	return len(candidates), nil
}

// restoreOpen puts back an open entry whose hold could not be created.
// ExternalID follows the new entry. If this fails too, RestoreMissing run
// from the intent's candidates recreates it later.
func (s *Service) restoreOpen(ctx context.Context, slot *session.OfferedSlot) {
	id, err := s.calendar.CreateEvent(ctx, slot.Start, s.holdHours, s.openTitle)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to restore open slot",
			"start", slot.Start,
			"error", err,
		)
		return
	}

	slot.ExternalID = id
}

// ResolveSelection books offered[selectedIndex] under bookingTitle and
// returns every other slot to the open pool. selectedIndex is 0-based and is
// checked before anything is touched. Slots already marked Settled are
// skipped and a missing tentative entry counts as deleted, so calling it
// again after a partial failure finishes the remaining work.
func (s *Service) ResolveSelection(
	ctx context.Context,
	offered []session.OfferedSlot,
	selectedIndex int,
	bookingTitle string,
) (*BookingResult, error) {
	if selectedIndex < 0 || selectedIndex >= len(offered) {
		return nil, oops.In("reservation").
			With("index", selectedIndex, "size", len(offered)).
			Wrap(ErrInvalidSelection)
	}

	for i := range offered {
		title := s.openTitle
		if i == selectedIndex {
			title = bookingTitle
		}

		if err := s.settle(ctx, &offered[i], title); err != nil {
			return nil, err
		}
	}

	return &BookingResult{
		Slot:      offered[selectedIndex],
		BookingID: offered[selectedIndex].ExternalID,
	}, nil
}

// Release returns every unsettled hold to the open pool.
func (s *Service) Release(ctx context.Context, held []session.OfferedSlot) error {
	for i := range held {
		if err := s.settle(ctx, &held[i], s.openTitle); err != nil {
			return err
		}
	}

	return nil
}

// RestoreMissing recreates an open entry for every candidate whose start no
// longer has any calendar entry. It returns how many entries were created;
// calling it again after a failure only creates what is still missing.
func (s *Service) RestoreMissing(ctx context.Context, candidates []session.OfferedSlot) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	from, to := candidates[0].Start, candidates[0].Start
	for _, slot := range candidates[1:] {
		if slot.Start.Before(from) {
			from = slot.Start
		}
		if slot.Start.After(to) {
			to = slot.Start
		}
	}

	events, err := s.calendar.ListEvents(ctx, from, to)
	if err != nil {
		return 0, oops.In("reservation").With("start", from, "end", to).Wrapf(err, "failed to list events")
	}

	restored := 0

	for _, slot := range candidates {
		occupied := slices.ContainsFunc(events, func(e calendar.Event) bool { return e.Start.Equal(slot.Start) })
		if occupied {
			continue
		}

		id, err := s.calendar.CreateEvent(ctx, slot.Start, s.holdHours, s.openTitle)
		if err != nil {
			return restored, oops.In("reservation").
				With("start", slot.Start, "restored", restored).
				Wrapf(err, "failed to restore open slot")
		}

		events = append(events, calendar.Event{ID: id, Title: s.openTitle, Start: slot.Start})
		restored++

		slog.InfoContext(ctx, "Restored open slot", "start", slot.Start, "external_id", id)
	}

	return restored, nil
}

func (s *Service) settle(ctx context.Context, slot *session.OfferedSlot, title string) error {
	if slot.Settled {
		return nil
	}

	err := s.calendar.DeleteEvent(ctx, slot.ExternalID)
	if err != nil && !errors.Is(err, calendar.ErrNotFound) {
		return oops.In("reservation").
			With("external_id", slot.ExternalID).
			Wrapf(err, "failed to remove tentative hold")
	}

	id, err := s.calendar.CreateEvent(ctx, slot.Start, s.holdHours, title)
	if err != nil {
		return oops.In("reservation").
			With("start", slot.Start, "title", title).
			Wrapf(err, "failed to create event")
	}

	slot.ExternalID = id
	slot.Settled = true

	return nil
}
