package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"recruitbot/app/client/calendar"
	"recruitbot/app/client/llm"
	"recruitbot/app/client/mail"
	"recruitbot/app/config"
	"recruitbot/app/service/api"
	"recruitbot/app/service/conversation"
	"recruitbot/app/service/engine"
	"recruitbot/app/service/faq"
	"recruitbot/app/service/intentlog"
	"recruitbot/app/service/mcpserver"
	"recruitbot/app/service/reservation"
	"recruitbot/app/service/session"
	"recruitbot/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, llm.New)
	do.Provide(di, calendar.New)
	do.Provide(di, mail.New)
	do.Provide(di, session.New)
	do.Provide(di, intentlog.New)
	do.Provide(di, reservation.New)
	do.Provide(di, faq.New)
	do.Provide(di, conversation.New)
	do.Provide(di, api.New)
	do.Provide(di, mcpserver.New)
	do.Provide(di, engine.New)

	engineSvc, err := do.Invoke[*engine.Service](di)
	if err != nil {
		log.Fatalf("service init failed: %v", err)
	}

	slog.Info("Service started", "mode", cfg.Server.Mode)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	if err = engineSvc.Run(appCtx); err != nil {
		slog.Error("Engine stopped", "error", err)
	}
}
