package mail

import (
	"context"

	"recruitbot/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
)

type Client interface {
	Notify(ctx context.Context, subject, body, recipient string) error
}

func New(di *do.Injector) (Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	switch cfg.Mail.Provider {
	case "gas":
		return NewScriptClient(cfg.Mail), nil
	case "gmail":
		return NewGmailClient(do.MustInvoke[context.Context](di), cfg.Mail)
	default:
		return nil, oops.Errorf("unknown mail provider %q", cfg.Mail.Provider)
	}
}
