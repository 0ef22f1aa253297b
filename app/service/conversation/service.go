package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"recruitbot/app/client/calendar"
	"recruitbot/app/client/llm"
	"recruitbot/app/client/mail"
	"recruitbot/app/config"
	"recruitbot/app/service/faq"
	"recruitbot/app/service/intentlog"
	"recruitbot/app/service/reservation"
	"recruitbot/app/service/session"

	"github.com/samber/do"
)

type Reply struct {
	Text string       `json:"reply"`
	Step session.Step `json:"step"`
}

type Deps struct {
	LLM         llm.Client
	Calendar    calendar.Client
	Mail        mail.Client
	Store       session.Store
	Locker      session.Locker
	Reservation *reservation.Service
	FAQ         *faq.Service
	Intents     *intentlog.Service
}

// Service runs one conversation turn at a time per session.
type Service struct {
	cfg *config.Config
	loc *time.Location
	now func() time.Time

	agent       *Agent
	calendar    calendar.Client
	mail        mail.Client
	store       session.Store
	locker      session.Locker
	reservation *reservation.Service
	faq         *faq.Service
	intents     *intentlog.Service
}

func New(di *do.Injector) (*Service, error) {
	sessionSvc := do.MustInvoke[*session.Service](di)

	return NewService(do.MustInvoke[*config.Config](di), Deps{
		LLM:         do.MustInvoke[llm.Client](di),
		Calendar:    do.MustInvoke[calendar.Client](di),
		Mail:        do.MustInvoke[mail.Client](di),
		Store:       sessionSvc.Store,
		Locker:      sessionSvc.Locker,
		Reservation: do.MustInvoke[*reservation.Service](di),
		FAQ:         do.MustInvoke[*faq.Service](di),
		Intents:     do.MustInvoke[*intentlog.Service](di),
	}), nil
}

func NewService(cfg *config.Config, deps Deps) *Service {
	return &Service{
		cfg:         cfg,
		loc:         cfg.Schedule.Location(),
		now:         time.Now,
		agent:       NewAgent(deps.LLM, cfg.LLM.Timeout),
		calendar:    deps.Calendar,
		mail:        deps.Mail,
		store:       deps.Store,
		locker:      deps.Locker,
		reservation: deps.Reservation,
		faq:         deps.FAQ,
		intents:     deps.Intents,
	}
}

// Handle processes one inbound message and always produces a reply. The
// session lock is held for the whole turn; a failed step leaves the session
// at the step it started from.
func (s *Service) Handle(ctx context.Context, sessionID, message string) Reply {
	if sessionID == "" {
		sessionID = session.DefaultID
	}

	start := time.Now()
	logger := slog.Default().With(slog.String("session_id", sessionID))

	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		logger.WarnContext(ctx, "Failed to lock session", "error", err)
		return Reply{Text: replyBusy}
	}
	defer unlock()

	current, err := s.store.Get(ctx, sessionID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load session", "error", err)
		return Reply{Text: replyInternalError}
	}

	sess := current.Clone()
	from := sess.Step

	text, err := s.dispatch(ctx, sess, strings.TrimSpace(message))
	if err != nil {
		sess.Step = from
		text = s.errorReply(ctx, logger, err)
	}

	if err = s.store.Put(ctx, sess); err != nil {
		logger.ErrorContext(ctx, "Failed to save session",
			"step", sess.Step,
			"error", err,
		)
		return Reply{Text: replyInternalError, Step: from}
	}

	logger.InfoContext(ctx, "Processed message",
		"from", from,
		"to", sess.Step,
		"duration", time.Since(start),
	)

	return Reply{Text: text, Step: sess.Step}
}

func (s *Service) dispatch(ctx context.Context, sess *session.Session, message string) (string, error) {
	switch sess.Step {
	case session.StepInitial:
		return s.handleInitial(ctx, sess, message)
	case session.StepFAQ:
		return s.handleFAQ(sess, message)
	case session.StepAskDetails:
		return s.handleDetails(ctx, sess, message)
	case session.StepSuggestDates:
		return s.handleSuggest(ctx, sess, message)
	case session.StepConfirmDate:
		return s.handleConfirm(ctx, sess, message)
	default:
		// Unknown steps can only come from a store written by another version.
		sess.Reset()
		return replyMenu, nil
	}
}

func (s *Service) errorReply(ctx context.Context, logger *slog.Logger, err error) string {
	if errors.Is(err, ErrMalformedOutput) {
		logger.WarnContext(ctx, "Model returned malformed output", "error", err)
		return replyRephrase
	}

	logger.ErrorContext(ctx, "Failed to process message", "error", err)

	return replyInternalError
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}
