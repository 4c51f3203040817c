package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/gpt-vault/internal/notify"
)

func main() {
	var envFile string

	cmd := &cobra.Command{
		Use:   "notify [message...]",
		Short: "Send a WhatsApp notification through Twilio",
		Long: `Send a WhatsApp message through Twilio.

With TWILIO_CONTENT_SID set the approved template is sent and any message
text is ignored. Otherwise the message text is sent, or an appointment
confirmation built from APPOINTMENT_NAME, APPOINTMENT_DATE, APPOINTMENT_TIME
and APPOINTMENT_PHONE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := notify.LoadConfig(envFile)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", envFile, err)
			}

			params, warnings, err := notify.BuildParams(cfg, strings.Join(args, " "))
			if err != nil {
				if errors.Is(err, notify.ErrNoContent) {
					fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
				}
				return err
			}
			for _, w := range warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}

			logger, _ := zap.NewProduction()
			defer logger.Sync()

			sid, err := notify.New(notify.NewTwilio(cfg), logger).Send(params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Message sent:", sid)
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional dotenv file with the TWILIO_* variables")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
