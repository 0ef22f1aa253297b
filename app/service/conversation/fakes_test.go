package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"recruitbot/app/client/calendar"
	"recruitbot/app/client/calendar/calendartest"
	"recruitbot/app/config"
	"recruitbot/app/service/faq"
	"recruitbot/app/service/intentlog"
	"recruitbot/app/service/reservation"
	"recruitbot/app/service/session"

	"github.com/stretchr/testify/require"
)

var (
	jst     = time.FixedZone("JST", 9*60*60)
	errBoom = errors.New("boom")
)

type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prompts = append(f.prompts, prompt)

	if len(f.responses) == 0 {
		return "", errors.New("no scripted response")
	}

	response := f.responses[0]
	f.responses = f.responses[1:]

	return response, nil
}

func (f *fakeLLM) script(responses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.responses = append(f.responses, responses...)
}

type sentMail struct {
	Subject   string
	Body      string
	Recipient string
}

type fakeMail struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMail) Notify(_ context.Context, subject, body, recipient string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, sentMail{Subject: subject, Body: body, Recipient: recipient})

	return nil
}

func (f *fakeMail) Sent() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]sentMail(nil), f.sent...)
}

// flakyStore fails the next failPuts writes and passes everything else
// through.
type flakyStore struct {
	session.Store

	mu       sync.Mutex
	failPuts int
}

func (f *flakyStore) Put(ctx context.Context, sess *session.Session) error {
	f.mu.Lock()
	if f.failPuts > 0 {
		f.failPuts--
		f.mu.Unlock()
		return errBoom
	}
	f.mu.Unlock()

	return f.Store.Put(ctx, sess)
}

func (f *flakyStore) failNextPut() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failPuts++
}

type testEnv struct {
	svc      *Service
	llm      *fakeLLM
	mail     *fakeMail
	calendar *calendartest.Fake
	sessions *session.Service
	store    *flakyStore
	intents  *intentlog.Service
}

func testConfig() *config.Config {
	return &config.Config{
		LLM:  config.LLM{Timeout: time.Second},
		Mail: config.Mail{Recipient: "recruiter@example.com"},
		Schedule: config.Schedule{
			Timezone:       "Asia/Tokyo",
			SlotLimit:      3,
			HoldHours:      1.5,
			OpenTitle:      "open",
			TentativeTitle: "tentative",
			NotifySubject:  "面接日程確定",
		},
	}
}

func newTestEnv(t *testing.T, events ...calendar.Event) *testEnv {
	t.Helper()

	cfg := testConfig()

	intents, err := intentlog.NewService(t.TempDir() + "/intents.jsonl")
	require.NoError(t, err)

	env := &testEnv{
		llm:      &fakeLLM{},
		mail:     &fakeMail{},
		calendar: calendartest.New(events...),
		sessions: session.NewMemoryService(30*time.Minute, time.Minute),
		intents:  intents,
	}
	env.store = &flakyStore{Store: env.sessions.Store}

	env.svc = NewService(cfg, Deps{
		LLM:         env.llm,
		Calendar:    env.calendar,
		Mail:        env.mail,
		Store:       env.store,
		Locker:      env.sessions.Locker,
		Reservation: reservation.NewService(env.calendar, cfg.Schedule),
		FAQ:         faq.NewService(faq.DefaultEntries(), faq.ModeFuzzy, faq.DefaultThreshold),
		Intents:     intents,
	})

	// Tuesday
	now := time.Date(2024, 12, 24, 9, 0, 0, 0, jst)
	env.svc.now = func() time.Time { return now }

	return env
}

func (e *testEnv) send(t *testing.T, message string) Reply {
	t.Helper()
	return e.svc.Handle(context.Background(), "u1", message)
}

func (e *testEnv) current(t *testing.T) *session.Session {
	t.Helper()

	sess, err := e.sessions.Get(context.Background(), "u1")
	require.NoError(t, err)

	return sess
}

func (e *testEnv) put(t *testing.T, sess *session.Session) {
	t.Helper()
	require.NoError(t, e.sessions.Put(context.Background(), sess))
}

func event(id, title string, start time.Time) calendar.Event {
	return calendar.Event{ID: id, Title: title, Start: start, End: start.Add(90 * time.Minute)}
}

// weekEvents are three open slots next week plus noise the filter must skip.
func weekEvents() []calendar.Event {
	return []calendar.Event{
		event("a", "open", time.Date(2024, 12, 30, 10, 0, 0, 0, jst)),
		event("b", "open", time.Date(2024, 12, 31, 10, 0, 0, 0, jst)),
		event("c", "open", time.Date(2025, 1, 2, 14, 0, 0, 0, jst)),
		event("x", "Suzuki - XY University", time.Date(2024, 12, 30, 13, 0, 0, 0, jst)),
		event("z", "open", time.Date(2025, 1, 10, 10, 0, 0, 0, jst)),
	}
}

const detailsResponse = `{"next_step":"suggest_dates","reply":"ありがとうございます","name":"Tanaka","university":"AB University","date":"next week"}`
