package mcpserver

import (
	"context"
	"testing"

	"recruitbot/app/service/conversation"
	"recruitbot/app/service/session"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	sessionID string
	message   string
}

func (f *fakeChat) Handle(_ context.Context, sessionID, message string) conversation.Reply {
	f.sessionID = sessionID
	f.message = message

	return conversation.Reply{Text: "reply to " + message, Step: session.StepInitial}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = chatToolName
	req.Params.Arguments = args

	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestHandleChat(t *testing.T) {
	chat := &fakeChat{}
	svc := NewService(chat)

	result, err := svc.handleChat(context.Background(), callRequest(map[string]any{
		"message":    " 1 ",
		"session_id": "u1",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "reply to 1", resultText(t, result))
	assert.Equal(t, "u1", chat.sessionID)
}

func TestHandleChat_DefaultSession(t *testing.T) {
	chat := &fakeChat{}
	svc := NewService(chat)

	_, err := svc.handleChat(context.Background(), callRequest(map[string]any{"message": "hi"}))
	require.NoError(t, err)
	assert.Equal(t, session.DefaultID, chat.sessionID)
}

func TestHandleChat_MissingMessage(t *testing.T) {
	chat := &fakeChat{}
	svc := NewService(chat)

	for _, args := range []map[string]any{{}, {"message": "  "}} {
		result, err := svc.handleChat(context.Background(), callRequest(args))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	}

	assert.Empty(t, chat.message)
}
