// Package app wires configuration into the shared client dependencies used
// by the bot and console binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xaenox/gpt-vault/internal/clock"
	"github.com/xaenox/gpt-vault/internal/identity"
	"github.com/xaenox/gpt-vault/internal/responder"
	"github.com/xaenox/gpt-vault/internal/shell"
	"github.com/xaenox/gpt-vault/internal/storage"
	"github.com/xaenox/gpt-vault/pkg/config"
)

func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Bootstrap opens storage and loads the roster. The returned storage must be
// closed by the caller.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (shell.Deps, storage.Storage, error) {
	store, err := storage.Open(ctx, cfg.StorageOptions(), logger)
	if err != nil {
		return shell.Deps{}, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	ids, err := identity.NewStore(ctx, store, logger, identity.Options{
		LoginDelay: cfg.Identity.LoginDelay,
		Delay:      clock.Sleep,
		HashCost:   cfg.Identity.HashCost,
	})
	if err != nil {
		store.Close()
		return shell.Deps{}, nil, fmt.Errorf("failed to load identities: %w", err)
	}

	return shell.Deps{
		Identities:  ids,
		Storage:     store,
		Responder:   responder.New(),
		Delay:       clock.Sleep,
		TypingDelay: cfg.Chat.TypingDelay,
		Logger:      logger,
	}, store, nil
}
