package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"payhook/internal/engine/links"
	"payhook/internal/pkg/logger"
	"payhook/internal/platform/config"
	"payhook/internal/platform/database"
	"payhook/internal/platform/models"
	"payhook/internal/platform/repositories"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

// connect loads config, opens the database and brings the schema up to date.
func connect(cmd *cobra.Command) (*config.Config, *sqlx.DB, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.ResolvePath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Logging, "payhook-migrate")

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	applied, err := database.Migrate(cmd.Context(), db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	for _, name := range applied {
		fmt.Fprintf(cmd.ErrOrStderr(), "applied %s\n", name)
	}
	return cfg, db, nil
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := connect(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Migration completed successfully")
			return nil
		},
	}
}

func createLinkCmd() *cobra.Command {
	var (
		link     models.WebhookLink
		flowID   int64
		tplID    int64
		settings models.EmailSettings
		qrPath   string
	)

	cmd := &cobra.Command{
		Use:   "create-link",
		Short: "Register a webhook link and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := connect(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if flowID > 0 {
				link.FlowID = &flowID
			}
			if tplID > 0 {
				link.EmailTemplateID = &tplID
			}
			if link.ActionType == models.ActionEmail && cmd.Flags().Changed("delay-type") {
				link.EmailSettings = &settings
			}

			svc := links.NewService(
				repositories.NewLinkRepository(db),
				repositories.NewFlowRepository(db),
				repositories.NewTemplateRepository(db),
				cfg.Links.PublicBaseURL,
				links.SenderDefaults{FromName: cfg.Email.FromName, FromEmail: cfg.Email.FromAddress},
			)

			created, err := svc.CreateLink(cmd.Context(), &link)
			if err != nil {
				return err
			}

			if qrPath != "" {
				png, err := links.QRCode(created, 0)
				if err != nil {
					return err
				}
				if err := os.WriteFile(qrPath, png, 0644); err != nil {
					return fmt.Errorf("failed to write QR code: %w", err)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(created)
		},
	}

	f := cmd.Flags()
	f.Int64Var(&link.CompanyID, "company", 0, "Owning company id")
	f.StringVar(&link.Name, "name", "", "Link name, unique per company")
	f.StringVar(&link.Description, "description", "", "Free-form description")
	f.StringVar(&link.Platform, "platform", models.PlatformGeneric, "Payment platform")
	f.StringVar(&link.ActionType, "action", models.ActionFlow, "Action: flow or email")
	f.Int64Var(&flowID, "flow-id", 0, "Flow to trigger (action=flow)")
	f.Int64Var(&tplID, "template-id", 0, "Email template to send (action=email)")
	f.IntVar(&settings.SendDelay, "delay", 0, "Send delay amount")
	f.StringVar(&settings.DelayType, "delay-type", models.DelayImmediate, "immediate, seconds, minutes, hours or days")
	f.StringVar(&settings.FromName, "from-name", "", "Sender name")
	f.StringVar(&settings.FromEmail, "from-email", "", "Sender address")
	f.StringVar(&settings.ReplyTo, "reply-to", "", "Reply-To address")
	f.StringVar(&qrPath, "qr", "", "Also write the webhook URL QR code PNG to this path")

	return cmd
}

func logsCmd() *cobra.Command {
	var (
		hash    string
		limit   int
		summary time.Duration
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent dispatch log entries for a link, or unmatched requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := connect(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()

			var linkID *int64
			if hash != "" {
				link, err := repositories.NewLinkRepository(db).FindByHash(ctx, hash)
				if err != nil {
					return err
				}
				if link == nil {
					return fmt.Errorf("no webhook link with hash %s", hash)
				}
				linkID = &link.ID
			}

			logs := repositories.NewDispatchLogRepository(db)

			if summary > 0 {
				if linkID == nil {
					return fmt.Errorf("--summary needs --hash")
				}
				s, err := logs.Summarize(ctx, *linkID, time.Now().Add(-summary))
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			entries, err := logs.ListByLink(ctx, linkID, limit)
			if err != nil {
				return err
			}

			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%s\t%s\t%dms\t%s\n",
					e.CreatedAt, e.HTTPStatus, e.Platform, e.EventType, e.ResponseTimeMs, e.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hash, "hash", "", "Link hash; empty lists requests that matched no link")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries")
	cmd.Flags().DurationVar(&summary, "summary", 0, "Print aggregate counts over this window (e.g. 24h) instead of entries")

	return cmd
}
