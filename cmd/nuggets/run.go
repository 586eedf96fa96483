package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hurttlocker/nuggets/internal/bot"
	"github.com/hurttlocker/nuggets/internal/ingest"
	"github.com/hurttlocker/nuggets/internal/reminder"
	"github.com/hurttlocker/nuggets/internal/tagger"
	"github.com/hurttlocker/nuggets/internal/telegram"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll Telegram and run the weekly reminder scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBot(cmd.Context())
		},
	}
}

func (a *app) newTagger(remote bool) *tagger.Tagger {
	if !remote {
		return tagger.New(nil, a.logger.Named("tagger"))
	}
	zs := tagger.NewZeroShotClient(tagger.ZeroShotConfig{
		URL:    a.cfg.ClassifierURL.Value,
		APIKey: a.cfg.ClassifierKey.Value,
		Logger: a.logger.Named("zeroshot"),
	})
	return tagger.New(zs, a.logger.Named("tagger"))
}

func (a *app) runBot(parent context.Context) error {
	if err := a.cfg.CheckSecrets(); err != nil {
		a.logger.Error("cannot start", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := telegram.NewClient(a.cfg.BotToken.Value)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verifying bot token: %w", err)
	}

	mgr, st, err := a.openState(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	eng := ingest.NewEngine(mgr, a.newTagger(true), ingest.Options{}, a.logger.Named("ingest"))
	b := bot.New(client, mgr, eng, a.logger.Named("bot"))
	sched := reminder.NewScheduler(mgr, b.Transport(), a.logger.Named("reminder"),
		reminder.WithInterval(a.cfg.Interval()))
	poller := telegram.NewPoller(client, b, a.logger.Named("poller"))

	stats := mgr.Stats()
	a.logger.Info("bot starting",
		zap.String("username", me.Username),
		zap.String("store", a.cfg.Store.Value),
		zap.Int("chats", stats.Chats),
		zap.Int("highlights", stats.Highlights),
		zap.Int("reminders_enabled", stats.RemindersEnabled))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	runErr := g.Wait()
	// Both loops only return once gctx is done, which also ends the
	// per-chat mailboxes.
	b.Wait()

	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mgr.Save(saveCtx); err != nil {
		a.logger.Error("final save", zap.Error(err))
		runErr = errors.Join(runErr, err)
	}
	if runErr != nil {
		a.logger.Error("bot stopped", zap.Error(runErr))
		return runErr
	}
	a.logger.Info("bot stopped")
	return nil
}
