package llm

import (
	"context"

	"recruitbot/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
)

// Client is an opaque text generator. Callers always ask for a JSON object,
// so providers run in JSON response mode.
type Client interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

func New(di *do.Injector) (Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAI(cfg.LLM)
	case "gemini":
		return NewGemini(do.MustInvoke[context.Context](di), cfg.LLM)
	default:
		return nil, oops.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
