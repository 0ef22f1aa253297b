package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"recruitbot/app/service/intentlog"
	"recruitbot/app/service/period"
	"recruitbot/app/service/session"
	"recruitbot/app/service/slots"
	"recruitbot/app/util/mylog"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/oops"
)

func (s *Service) handleInitial(ctx context.Context, sess *session.Session, message string) (string, error) {
	if choice, ok := parseChoice(message); ok {
		switch choice {
		case menuSchedule:
			sess.Step = session.StepAskDetails
			return replyAskDetails, nil
		case menuFAQ:
			sess.Step = session.StepFAQ
			return replyFAQIntro, nil
		}
	}

	if message == "" {
		return replyMenu, nil
	}

	response, step, err := s.agent.Call(ctx, initialPromptTemplate,
		map[string]any{"message": message},
		session.StepInitial, session.StepAskDetails, session.StepFAQ,
	)
	if err != nil {
		return "", err
	}

	sess.Step = step

	switch step {
	case session.StepAskDetails:
		return replyAskDetails, nil
	case session.StepFAQ:
		return orDefault(response.Reply, replyFAQIntro), nil
	default:
		return orDefault(response.Reply, replyMenu), nil
	}
}

func (s *Service) handleFAQ(sess *session.Session, message string) (string, error) {
	if isMenuRequest(message) {
		sess.Step = session.StepInitial
		return replyMenu, nil
	}

	return s.faq.Answer(message) + replyFAQFooter, nil
}

// handleDetails merges whatever the model extracted and advances only when
// all three fields are present, whatever next_step the model suggested.
func (s *Service) handleDetails(ctx context.Context, sess *session.Session, message string) (string, error) {
	response, _, err := s.agent.Call(ctx, detailsPromptTemplate,
		map[string]any{
			"message":    message,
			"name":       orDefault(sess.Name, "未入力"),
			"university": orDefault(sess.University, "未入力"),
			"date":       orDefault(sess.RequestedPeriod, "未入力"),
			"missing":    strings.Join(sess.MissingFields(), ", "),
		},
		session.StepAskDetails, session.StepSuggestDates,
	)
	if err != nil {
		return "", err
	}

	if response.Name != "" {
		sess.Name = response.Name
	}
	if response.University != "" {
		sess.University = response.University
	}
	if response.Date != "" {
		sess.RequestedPeriod = response.Date
	}

	if missing := sess.MissingFields(); len(missing) > 0 {
		sess.Step = session.StepAskDetails

		labels := pie.Map(missing, func(field string) string { return fieldLabels[field] })
		return fmt.Sprintf(replyMissing, strings.Join(labels, "、")), nil
	}

	sess.Step = session.StepSuggestDates

	p := period.Parse(sess.RequestedPeriod, s.today())

	return fmt.Sprintf(replyDetailsConfirm,
		sess.Name,
		sess.University,
		sess.RequestedPeriod,
		p.Start.Format("2006/01/02"),
		p.End.Format("2006/01/02"),
	), nil
}

func (s *Service) handleSuggest(ctx context.Context, sess *session.Session, message string) (string, error) {
	if isDecline(message) {
		sess.Name = ""
		sess.University = ""
		sess.RequestedPeriod = ""
		sess.Step = session.StepAskDetails

		return replyAskAgain, nil
	}

	return s.offer(ctx, sess)
}

// offer reads the calendar for the requested period, holds the earliest open
// slots and moves the session to confirm_date. Holds are logged in the
// intent log before the calendar is touched.
func (s *Service) offer(ctx context.Context, sess *session.Session) (string, error) {
	now := s.today()
	p := period.Parse(sess.RequestedPeriod, now)

	events, err := s.calendar.ListEvents(ctx, p.Start, p.End)
	if err != nil {
		return "", oops.In("conversation").With("period", p.String()).Wrapf(err, "failed to list events")
	}

	candidates := slots.FilterOpen(events, s.cfg.Schedule.OpenTitle, now, s.cfg.Schedule.SlotLimit)
	if len(candidates) == 0 {
		return fmt.Sprintf(replyNoAvailability, p.Start.Format("2006/01/02"), p.End.Format("2006/01/02")), nil
	}

	intentID, err := s.intents.Begin(sess.ID, holdsOf(candidates))
	if err != nil {
		return "", err
	}

	// a hold missing from the intent would later read as already settled
	held, err := s.reservation.OfferAndHold(ctx, candidates)
	if recordErr := s.intents.RecordHolds(intentID, holdsOf(candidates[:held])); err == nil {
		err = recordErr
	}

	if err != nil {
		s.releaseHolds(ctx, intentID, candidates[:held], candidates)
		return "", err
	}

	slots.Number(candidates)

	sess.OfferedSlots = candidates
	sess.PendingChoice = 0
	sess.HoldIntentID = intentID
	sess.Step = session.StepConfirmDate

	return fmt.Sprintf(replyOffer, slots.FormatList(candidates, s.loc)), nil
}

// handleConfirm books the chosen slot. The intent log is the record of how
// far a resolution got: the choice is pinned there before the calendar is
// touched and the remaining holds are written after, so a retry finishes the
// same booking even when the previous turn's session write was lost.
func (s *Service) handleConfirm(ctx context.Context, sess *session.Session, message string) (string, error) {
	if sess.HoldIntentID == "" {
		sess.Reset()
		return replyMenu, nil
	}

	intent, found, err := s.intents.Get(sess.HoldIntentID)
	if err != nil {
		return "", err
	}
	if !found {
		slog.InfoContext(ctx, "Booking already finished",
			"session_id", sess.ID,
			"intent_id", sess.HoldIntentID,
		)
		sess.Reset()
		return replyAlreadyBooked, nil
	}

	syncSettled(sess.OfferedSlots, intent.Holds)

	choice := intent.Choice
	if choice == 0 {
		choice = sess.PendingChoice
	}
	if choice == 0 {
		n, ok := parseChoice(message)
		if !ok || n < 1 || n > len(sess.OfferedSlots) {
			return fmt.Sprintf(replyInvalidChoice, len(sess.OfferedSlots)), nil
		}
		choice = n
	}

	if err = s.intents.Choose(intent.ID, choice); err != nil {
		return "", err
	}
	sess.PendingChoice = choice

	title := fmt.Sprintf("%s - %s", sess.Name, sess.University)

	result, err := s.reservation.ResolveSelection(ctx, sess.OfferedSlots, choice-1, title)
	if recordErr := s.intents.RecordHolds(intent.ID, holdsOf(sess.OfferedSlots)); err == nil {
		err = recordErr
	}

	if err != nil {
		if !pie.Any(sess.OfferedSlots, func(slot session.OfferedSlot) bool { return slot.Settled }) {
			s.unpin(ctx, sess)
		}
		return "", err
	}

	booked := slots.Format(result.Slot, s.loc)
	body := fmt.Sprintf(notifyBody, sess.Name, sess.University, booked)

	if err = s.mail.Notify(ctx, s.cfg.Schedule.NotifySubject, body, s.cfg.Mail.Recipient); err != nil {
		return "", oops.In("conversation").With("booking_id", result.BookingID).Wrapf(err, "failed to send notification")
	}

	if err = s.intents.Complete(sess.HoldIntentID); err != nil {
		slog.WarnContext(ctx, "Failed to complete intent",
			"intent_id", sess.HoldIntentID,
			"error", err,
		)
	}

	slog.InfoContext(ctx, "Interview booked",
		"session_id", sess.ID,
		"booking_id", result.BookingID,
		"slot", booked,
		mylog.Telegram(),
	)

	sess.Reset()

	return fmt.Sprintf(replyBooked, booked), nil
}

// syncSettled marks offered slots whose hold is gone from the intent as
// settled. The intent is written after every resolution step, so it can be
// ahead of a session whose last write failed.
func syncSettled(offered []session.OfferedSlot, holds []intentlog.Hold) {
	for i := range offered {
		slot := &offered[i]
		if slot.Settled {
			continue
		}

		slot.Settled = !slices.ContainsFunc(holds, func(h intentlog.Hold) bool { return h.EventID == slot.ExternalID })
	}
}

// unpin lets the user pick again after a resolution failed before touching
// any slot.
func (s *Service) unpin(ctx context.Context, sess *session.Session) {
	sess.PendingChoice = 0

	if err := s.intents.Choose(sess.HoldIntentID, 0); err != nil {
		slog.WarnContext(ctx, "Failed to clear pinned choice",
			"intent_id", sess.HoldIntentID,
			"error", err,
		)
	}
}

// recordHolds stores the slots that are still tentative in the intent.
func (s *Service) recordHolds(ctx context.Context, intentID string, offered []session.OfferedSlot) {
	if intentID == "" {
		return
	}

	if err := s.intents.RecordHolds(intentID, holdsOf(offered)); err != nil {
		slog.WarnContext(ctx, "Failed to record holds",
			"intent_id", intentID,
			"error", err,
		)
	}
}

// releaseHolds returns a partially held batch to the open pool and puts back
// any candidate whose open entry was lost on the way. When that fails too the
// intent stays pending for the reconciler.
func (s *Service) releaseHolds(ctx context.Context, intentID string, held, candidates []session.OfferedSlot) {
	err := s.reservation.Release(ctx, held)
	s.recordHolds(ctx, intentID, held)

	if err == nil {
		_, err = s.reservation.RestoreMissing(ctx, candidates)
	}

	if err != nil {
		slog.WarnContext(ctx, "Failed to release holds",
			"intent_id", intentID,
			"error", err,
		)
		return
	}

	if err = s.intents.Complete(intentID); err != nil {
		slog.WarnContext(ctx, "Failed to complete intent",
			"intent_id", intentID,
			"error", err,
		)
	}
}

func holdsOf(offered []session.OfferedSlot) []intentlog.Hold {
	unsettled := pie.Filter(offered, func(slot session.OfferedSlot) bool { return !slot.Settled })

	return pie.Map(unsettled, func(slot session.OfferedSlot) intentlog.Hold {
		return intentlog.Hold{EventID: slot.ExternalID, Start: slot.Start}
	})
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
