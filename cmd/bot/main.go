package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xaenox/gpt-vault/internal/app"
	"github.com/xaenox/gpt-vault/internal/bot"
	"github.com/xaenox/gpt-vault/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		panic(err)
	}

	// Initialize logger
	logger, _ := app.NewLogger(cfg.Log)
	defer logger.Sync()

	if cfg.Telegram.Token == "" {
		logger.Fatal("Telegram token is not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage and identities
	deps, store, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer store.Close()

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, deps, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}
	defer b.Close()

	// Start the bot
	logger.Info("Bot started")
	if err := b.Start(ctx); err != nil {
		logger.Error("Bot error", zap.Error(err))
	}
}
