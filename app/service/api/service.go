package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"recruitbot/app/config"
	"recruitbot/app/service/conversation"
	"recruitbot/app/service/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

const shutdownTimeout = 5 * time.Second

type Chat interface {
	Handle(ctx context.Context, sessionID, message string) conversation.Reply
}

type chatRequest struct {
	Message   string `json:"message" validate:"required,max=2000"`
	SessionID string `json:"session_id" validate:"max=128"`
	// Free-form client context; a "session_id" inside it is used when the
	// top level field is missing.
	Context any `json:"context"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Service struct {
	addr     string
	app      *fiber.App
	chat     Chat
	limiters *limiterStore
	validate *validator.Validate
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)
	return NewService(cfg.Server, do.MustInvoke[*conversation.Service](di)), nil
}

func NewService(cfg config.Server, chat Chat) *Service {
	s := &Service{
		addr:     cfg.Addr,
		chat:     chat,
		limiters: newLimiterStore(cfg.RequestsPerMinute),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "recruitbot",
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.app.Get("/healthz", s.healthz)
	s.app.Post("/chat", s.handleChat)

	return s
}

func (s *Service) App() *fiber.App {
	return s.app
}

// Run serves HTTP until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			slog.Error("Failed to shut down HTTP server", "error", err)
		}
	}()

	slog.Info("HTTP server listening", "addr", s.addr)

	return s.app.Listen(s.addr)
}

func (s *Service) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Service) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Message = strings.TrimSpace(req.Message)
	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "message is required and must be at most 2000 characters")
	}

	sessionID := resolveSessionID(req)

	if !s.limiters.allow(sessionID) {
		slog.Warn("Rate limit exceeded", "session_id", sessionID)
		return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded, try again later")
	}

	reply := s.chat.Handle(c.UserContext(), sessionID, req.Message)

	return c.JSON(reply)
}

func resolveSessionID(req chatRequest) string {
	if id := strings.TrimSpace(req.SessionID); id != "" {
		return id
	}

	if id := contextSessionID(req.Context); id != "" {
		return id
	}

	return session.DefaultID
}

// contextSessionID accepts either an object or a list of objects, taking the
// first "session_id" string found.
func contextSessionID(value any) string {
	switch v := value.(type) {
	case map[string]any:
		if id, ok := v["session_id"].(string); ok {
			return strings.TrimSpace(id)
		}
	case []any:
		for _, item := range v {
			if id := contextSessionID(item); id != "" {
				return id
			}
		}
	}

	return ""
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	message := "internal error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	} else {
		slog.Error("Request failed",
			"path", c.Path(),
			"error", err,
		)
	}

	return c.Status(code).JSON(errorResponse{Error: message})
}
