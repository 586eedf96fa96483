package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hurttlocker/nuggets/internal/bot"
	"github.com/hurttlocker/nuggets/internal/config"
	"github.com/hurttlocker/nuggets/internal/reminder"
	"github.com/hurttlocker/nuggets/internal/telegram"
)

func newRemindersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Weekly reminder tools",
	}
	cmd.AddCommand(newRemindersCheckCmd(a))
	return cmd
}

func newRemindersCheckCmd(a *app) *cobra.Command {
	var (
		nowFlag string
		dryRun  bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one reminder cycle",
		Long: `Runs a single reminder check against the stored state. With --dry-run
the due nudges are listed but nothing is sent or saved. --now evaluates the
schedule at another instant (RFC3339).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if nowFlag != "" {
				t, err := time.Parse(time.RFC3339, nowFlag)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
				now = t
			}

			var sender reminder.Sender
			if !dryRun {
				if a.cfg.BotToken.Value == "" {
					return fmt.Errorf("%w: BOT_TOKEN (or use --dry-run)", config.ErrMissingSecret)
				}
				client, err := telegram.NewClient(a.cfg.BotToken.Value)
				if err != nil {
					return fmt.Errorf("telegram: %w", err)
				}
				sender = bot.Transport{API: client}
			}

			ctx := cmd.Context()
			mgr, st, err := a.openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			sched := reminder.NewScheduler(mgr, sender, a.logger.Named("reminder"))
			report, checkErr := sched.Check(ctx, now, dryRun)

			out := cmd.OutOrStdout()
			if report != nil {
				if asJSON {
					data, _ := json.MarshalIndent(report, "", "  ")
					fmt.Fprintln(out, string(data))
				} else {
					printReport(cmd, report)
				}
			}
			return checkErr
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "evaluate at this RFC3339 time instead of now")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list due nudges without sending or saving")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(cmd *cobra.Command, r *reminder.Report) {
	out := cmd.OutOrStdout()
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	window := "outside"
	if reminder.InWindow(r.CheckedAt) {
		window = "inside"
	}
	fmt.Fprintf(out, "Reminder check at %s%s\n", r.CheckedAt.Format(time.RFC3339), mode)
	fmt.Fprintf(out, "  send window: %s (Mondays from %02d:00 UTC)\n", window, reminder.SendHour)
	fmt.Fprintf(out, "  enabled: %d  due: %d  sent: %d  failed: %d\n", r.Enabled, len(r.Deliveries), r.Sent, r.Failed)
	for _, d := range r.Deliveries {
		status := "due"
		switch {
		case d.Sent:
			status = "sent"
		case d.Error != "":
			status = "failed: " + d.Error
		}
		fmt.Fprintf(out, "  - chat %d phrase #%d [%s]\n", d.ChatID, d.PhraseIndex, status)
	}
}
