package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/gpt-vault/internal/app"
	"github.com/xaenox/gpt-vault/internal/console"
	"github.com/xaenox/gpt-vault/internal/shell"
	"github.com/xaenox/gpt-vault/pkg/config"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Chat with the assistant from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			logger, err := app.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps, store, err := app.Bootstrap(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			client := shell.NewClient(deps, cfg.Console.SessionKey)
			defer client.Close()

			if err := console.New(client, cmd.InOrStdin(), cmd.OutOrStdout(), logger).Run(ctx); err != nil {
				logger.Error("Console error", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the config file")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
