package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/spesesmart/internal/app/telegrambot"
	"github.com/magabrotheeeer/spesesmart/internal/config"
	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting telegram bot", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := telegrambot.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize bot app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("bot app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("bot stopped gracefully")
}
