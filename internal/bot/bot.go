// Package bot routes Telegram updates to command handlers and the
// dialogue controller. Each chat gets a mailbox goroutine so one chat's
// updates are handled in order while chats proceed independently.
// Queuing never blocks: a chat stuck in a slow upload cannot hold up
// the poller or any other chat.
package bot

import (
	"context"
	"fmt"
	"html"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hurttlocker/nuggets/internal/dialogue"
	"github.com/hurttlocker/nuggets/internal/nugget"
	"github.com/hurttlocker/nuggets/internal/reminder"
	"github.com/hurttlocker/nuggets/internal/state"
	"github.com/hurttlocker/nuggets/internal/telegram"
)

const (
	// mailboxSize caps the updates waiting for one chat; more are dropped.
	mailboxSize = 64
	mailboxIdle = 5 * time.Minute
)

const helpText = "Here are the commands you can use:\n\n" +
	"/start - Start interacting with the bot.\n" +
	"/upload - Send me your Kindle highlights file (.txt) for smart tagging.\n" +
	"/topics - Change your preferred topics (hashtags).\n" +
	"/wisdom - Get a random wisdom nugget right now (as many times as you like!).\n" +
	"/reminders - Control weekly wisdom reminders.\n" +
	"/cancel - Stop the current upload or topic selection.\n" +
	"/help - Show this help message."

// Bot dispatches updates.
type Bot struct {
	api       API
	transport Transport
	state     *state.Manager
	dialogue  *dialogue.Controller
	logger    *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu        sync.Mutex
	mailboxes map[int64]*mailbox
	workers   errgroup.Group
	idle      time.Duration
}

// mailbox is one chat's pending updates. queue is guarded by Bot.mu.
type mailbox struct {
	queue []telegram.Update
	wake  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

func (m *mailbox) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Option configures a Bot.
type Option func(*Bot)

// WithRand seeds nugget selection.
func WithRand(r *rand.Rand) Option {
	return func(b *Bot) { b.rng = r }
}

// New wires a bot around the Telegram API, state and ingestion engine.
func New(api API, mgr *state.Manager, ing dialogue.Ingester, logger *zap.Logger, opts ...Option) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := Transport{API: api}
	b := &Bot{
		api:       api,
		transport: t,
		state:     mgr,
		dialogue:  dialogue.NewController(mgr, ing, t, t, logger.Named("dialogue")),
		logger:    logger,
		mailboxes: map[int64]*mailbox{},
		idle:      mailboxIdle,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Transport exposes the send side for the reminder scheduler.
func (b *Bot) Transport() Transport { return b.transport }

// HandleUpdate queues u on its chat's mailbox and returns without
// waiting for it to be handled. It implements telegram.Handler.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) {
	chatID := u.ChatID()
	if chatID == 0 {
		b.logger.Debug("update without chat", zap.Int64("update_id", u.UpdateID))
		return
	}

	b.mu.Lock()
	box, ok := b.mailboxes[chatID]
	if !ok {
		box = newMailbox()
		b.mailboxes[chatID] = box
		b.workers.Go(func() error {
			b.drain(ctx, chatID, box)
			return nil
		})
	}
	if len(box.queue) >= mailboxSize {
		b.mu.Unlock()
		b.logger.Warn("mailbox full, dropping update",
			zap.Int64("chat_id", chatID),
			zap.Int64("update_id", u.UpdateID))
		return
	}
	box.queue = append(box.queue, u)
	b.mu.Unlock()
	box.signal()
}

// next pops the oldest queued update.
func (b *Bot) next(box *mailbox) (telegram.Update, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(box.queue) == 0 {
		return telegram.Update{}, false
	}
	u := box.queue[0]
	box.queue[0] = telegram.Update{}
	box.queue = box.queue[1:]
	return u, true
}

// drain processes one chat's mailbox until it sits idle or ctx ends.
func (b *Bot) drain(ctx context.Context, chatID int64, box *mailbox) {
	timer := time.NewTimer(b.idle)
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		if u, ok := b.next(box); ok {
			b.Process(ctx, u)
			continue
		}
		timer.Reset(b.idle)
		select {
		case <-box.wake:
		case <-timer.C:
			b.mu.Lock()
			if len(box.queue) > 0 {
				b.mu.Unlock()
				continue
			}
			delete(b.mailboxes, chatID)
			b.mu.Unlock()
			return
		case <-ctx.Done():
			return
		}
	}
}

// Wait blocks until every mailbox goroutine has exited.
func (b *Bot) Wait() {
	_ = b.workers.Wait()
}

// Process handles one update synchronously.
func (b *Bot) Process(ctx context.Context, u telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic handling update", zap.Int64("update_id", u.UpdateID), zap.Any("panic", r))
		}
	}()

	var err error
	switch {
	case u.CallbackQuery != nil:
		err = b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		err = b.handleMessage(ctx, u.Message)
	default:
		return
	}
	if err != nil {
		b.logger.Error("handling update",
			zap.Int64("update_id", u.UpdateID),
			zap.Int64("chat_id", u.ChatID()),
			zap.Error(err))
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *telegram.Message) error {
	chatID := m.Chat.ID
	log := b.logger.With(zap.Int64("chat_id", chatID))

	if cmd := m.Command(); cmd != "" {
		log.Debug("command", zap.String("command", cmd))
		switch strings.ToLower(cmd) {
		case "start":
			return b.reply(ctx, chatID, dialogue.Message{Text: startText(m.From), HTML: true})
		case "help":
			return b.reply(ctx, chatID, dialogue.Message{Text: helpText})
		case "wisdom":
			return b.reply(ctx, chatID, dialogue.Message{Text: b.wisdom(chatID)})
		case "reminders":
			return b.reply(ctx, chatID, reminder.Menu(b.state.RemindersEnabled(chatID)))
		case "upload":
			return b.dialogue.Handle(ctx, chatID, dialogue.Event{Kind: dialogue.EventUploadCommand})
		case "topics":
			return b.dialogue.Handle(ctx, chatID, dialogue.Event{Kind: dialogue.EventTopicsCommand})
		case "cancel":
			return b.dialogue.Handle(ctx, chatID, dialogue.Event{Kind: dialogue.EventCancel})
		default:
			return nil
		}
	}

	ev := dialogue.Event{Kind: dialogue.EventOther}
	switch {
	case m.Document != nil:
		ev = dialogue.Event{Kind: dialogue.EventDocument, FileName: m.Document.FileName, FileID: m.Document.FileID}
	case strings.TrimSpace(m.Text) != "":
		ev = dialogue.Event{Kind: dialogue.EventText, Text: m.Text}
	}
	return b.dialogue.Handle(ctx, chatID, ev)
}

func (b *Bot) handleCallback(ctx context.Context, q *telegram.CallbackQuery) error {
	// Always stop the client's spinner.
	defer func() {
		if err := b.api.AnswerCallbackQuery(ctx, q.ID, ""); err != nil {
			b.logger.Warn("answering callback", zap.Error(err))
		}
	}()
	if q.Message == nil {
		return nil
	}
	chatID := q.Message.Chat.ID

	if reminder.IsCallback(q.Data) {
		unlock := b.state.Lock(chatID)
		text, err := reminder.ApplyCallback(ctx, b.state, chatID, q.Data)
		unlock()
		if err != nil {
			b.logger.Error("updating reminders", zap.Int64("chat_id", chatID), zap.Error(err))
			return b.reply(ctx, chatID, dialogue.Message{Text: text})
		}
		return b.editOrReply(ctx, chatID, q.Message.MessageID, dialogue.Message{Text: text})
	}

	if ev, ok := dialogue.ParseCallback(q.Data, q.Message.MessageID); ok {
		return b.dialogue.Handle(ctx, chatID, ev)
	}
	b.logger.Debug("unknown callback", zap.String("data", q.Data))
	return nil
}

func (b *Bot) wisdom(chatID int64) string {
	highlights := b.state.Highlights(chatID)
	prefs := b.state.Preferences(chatID)
	if b.rng == nil {
		return nugget.Select(highlights, prefs, nil)
	}
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	return nugget.Select(highlights, prefs, b.rng)
}

func (b *Bot) reply(ctx context.Context, chatID int64, msg dialogue.Message) error {
	if _, err := b.transport.Send(ctx, chatID, msg); err != nil {
		return fmt.Errorf("sending reply: %w", err)
	}
	return nil
}

func (b *Bot) editOrReply(ctx context.Context, chatID int64, messageID int, msg dialogue.Message) error {
	if err := b.transport.Edit(ctx, chatID, messageID, msg); err != nil {
		b.logger.Warn("editing message, sending instead", zap.Int64("chat_id", chatID), zap.Error(err))
		return b.reply(ctx, chatID, msg)
	}
	return nil
}

// startText greets the user with an HTML mention.
func startText(u *telegram.User) string {
	mention := "there"
	if u != nil {
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		if name == "" {
			name = u.Username
		}
		if name == "" {
			name = "friend"
		}
		mention = fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, html.EscapeString(name))
	}
	return "Hello " + mention + "! Welcome to your Kindle Wisdom Bot.\n\n" +
		"I can help you extract wisdom from your Kindle highlights, <b>automatically categorize them by meaning</b>, " +
		"and send you personalized wisdom nuggets anytime you want. Your highlights are now saved permanently! " +
		"I can also send you fun weekly reminders!\n\n" +
		"To get started, use /upload to send me your Kindle highlights file (.txt)."
}
