package mylog

import (
	"context"
	"log/slog"
	"os"

	"recruitbot/app/config"

	"github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"
	slogtelegram "github.com/samber/slog-telegram/v2"
)

// TelegramKey marks a record that must be forwarded to the telegram sink
// regardless of its level.
const TelegramKey = "telegram"

// Telegram returns the attribute that routes a record to telegram.
func Telegram() slog.Attr {
	return slog.Bool(TelegramKey, true)
}

func Preinit() {
	slog.SetDefault(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
	})))
}

func Init(cfg *config.Config) error {
	level := slog.LevelInfo
	if cfg.Log.Debug {
		level = slog.LevelDebug
	}

	router := slogmulti.Router()

	router = router.Add(console.NewHandler(os.Stderr, &console.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))

	if cfg.Log.Telegram.Token != "" {
		router = router.Add(
			slogtelegram.Option{
				Level:     slog.LevelDebug,
				Token:     cfg.Log.Telegram.Token,
				Username:  cfg.Log.Telegram.ChatID,
				AddSource: true,
			}.NewTelegramHandler(),

			func(_ context.Context, r slog.Record) bool {
				return r.Level == slog.LevelError || hasTelegramAttr(r)
			},
		)
	}

	slog.SetDefault(slog.New(router.Handler()))

	return nil
}

func hasTelegramAttr(r slog.Record) bool {
	found := false

	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == TelegramKey {
			found = true
			return false
		}

		return true
	})

	return found
}
