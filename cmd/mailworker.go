/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TrustyKrab/Englix-Server/config"
	"github.com/TrustyKrab/Englix-Server/internal/mailer"
	"github.com/TrustyKrab/Englix-Server/internal/mq"
)

// mailWorkerCmd represents the mail-worker command
var mailWorkerCmd = &cobra.Command{
	Use:   "mail-worker",
	Short: "Deliver queued email over SMTP",
	Long: `Consumes messages queued by the server when MAIL_BACKEND is rabbitmq or
pubsub and delivers them through the configured SMTP relay. Usage:

	MAIL_BACKEND=rabbitmq englix mail-worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.Mail.Backend != config.MailRabbitMQ && cfg.Mail.Backend != config.MailPubSub {
			return fmt.Errorf("mail-worker needs MAIL_BACKEND rabbitmq or pubsub, got %q", cfg.Mail.Backend)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		backend, err := mq.NewBackend(ctx, cfg.Mail.Backend, cfg)
		if err != nil {
			return fmt.Errorf("connect queue failed: %w", err)
		}
		queue := mq.New(backend)
		defer func() {
			_ = queue.Close()
		}()

		smtp, err := mailer.NewSMTPMailer(cfg.Mail)
		if err != nil {
			return fmt.Errorf("init smtp failed: %w", err)
		}

		err = mailer.NewWorker(queue, cfg.Mail.Queue, smtp).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(mailWorkerCmd)
}
