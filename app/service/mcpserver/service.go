package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"recruitbot/app/service/conversation"
	"recruitbot/app/service/session"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
)

const (
	serverName    = "recruitbot"
	serverVersion = "1.0.0"
	chatToolName  = "chat"
)

type Chat interface {
	Handle(ctx context.Context, sessionID, message string) conversation.Reply
}

// Service exposes the conversation as a single MCP tool over stdio.
type Service struct {
	chat   Chat
	server *server.MCPServer
}

func New(di *do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[*conversation.Service](di)), nil
}

func NewService(chat Chat) *Service {
	s := &Service{
		chat:   chat,
		server: server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}

	tool := mcp.NewTool(chatToolName,
		mcp.WithDescription("Send a message to the interview scheduling assistant and get its reply"),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Message from the applicant"),
		),
		mcp.WithString("session_id",
			mcp.Description("Conversation id, defaults to guest"),
		),
	)

	s.server.AddTool(tool, s.handleChat)

	return s
}

// Run serves MCP on stdin/stdout until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

func (s *Service) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	slog.Info("MCP server listening on stdio")

	return server.NewStdioServer(s.server).Listen(ctx, in, out)
}

func (s *Service) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return mcp.NewToolResultError("message must not be empty"), nil
	}

	sessionID := strings.TrimSpace(request.GetString("session_id", session.DefaultID))

	reply := s.chat.Handle(ctx, sessionID, message)

	return mcp.NewToolResultText(reply.Text), nil
}
