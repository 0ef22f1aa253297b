package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"recruitbot/app/config"
	"recruitbot/app/service/conversation"
	"recruitbot/app/service/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	SessionID string
	Message   string
}

type fakeChat struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeChat) Handle(_ context.Context, sessionID, message string) conversation.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call{SessionID: sessionID, Message: message})

	return conversation.Reply{Text: "echo: " + message, Step: session.StepAskDetails}
}

func newTestService(perMinute int) (*Service, *fakeChat) {
	chat := &fakeChat{}
	svc := NewService(config.Server{
		Addr:              ":0",
		BodyLimit:         4096,
		RequestsPerMinute: perMinute,
	}, chat)

	return svc, chat
}

func post(t *testing.T, svc *Service, body string) (int, map[string]string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var result map[string]string
	require.NoError(t, json.Unmarshal(data, &result))

	return resp.StatusCode, result
}

func TestChat(t *testing.T) {
	svc, chat := newTestService(30)

	code, body := post(t, svc, `{"message":" 1 ","session_id":"u1"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "echo: 1", body["reply"])
	assert.Equal(t, "ask_details", body["step"])
	assert.Equal(t, []call{{SessionID: "u1", Message: "1"}}, chat.calls)
}

func TestChat_SessionIDFallback(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "context object", body: `{"message":"hi","context":{"session_id":"ctx"}}`, want: "ctx"},
		{name: "context list", body: `{"message":"hi","context":[{"name":"Tanaka"},{"session_id":"list"}]}`, want: "list"},
		{name: "top level wins", body: `{"message":"hi","session_id":"top","context":{"session_id":"ctx"}}`, want: "top"},
		{name: "guest", body: `{"message":"hi","context":[]}`, want: session.DefaultID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, chat := newTestService(30)

			code, _ := post(t, svc, tt.body)
			require.Equal(t, http.StatusOK, code)
			require.Len(t, chat.calls, 1)
			assert.Equal(t, tt.want, chat.calls[0].SessionID)
		})
	}
}

func TestChat_BadRequest(t *testing.T) {
	svc, chat := newTestService(30)

	for _, body := range []string{`{"message":"   "}`, `{}`, `not json`, `{"message":"` + strings.Repeat("a", 2001) + `"}`} {
		code, result := post(t, svc, body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.NotEmpty(t, result["error"])
	}

	assert.Empty(t, chat.calls)
}

func TestChat_RateLimit(t *testing.T) {
	svc, chat := newTestService(2)

	for i := 0; i < 2; i++ {
		code, _ := post(t, svc, `{"message":"hi","session_id":"u1"}`)
		require.Equal(t, http.StatusOK, code)
	}

	code, result := post(t, svc, `{"message":"hi","session_id":"u1"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.NotEmpty(t, result["error"])

	code, _ = post(t, svc, `{"message":"hi","session_id":"u2"}`)
	assert.Equal(t, http.StatusOK, code)

	assert.Len(t, chat.calls, 3)
}

func TestHealthz(t *testing.T) {
	svc, _ := newTestService(30)

	resp, err := svc.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
