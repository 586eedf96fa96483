package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hurttlocker/nuggets/internal/highlight"
	"github.com/hurttlocker/nuggets/internal/ingest"
	"github.com/hurttlocker/nuggets/internal/state"
)

// Replier delivers messages to a chat.
type Replier interface {
	Send(ctx context.Context, chatID int64, msg Message) (messageID int, err error)
	Edit(ctx context.Context, chatID int64, messageID int, msg Message) error
}

// Fetcher downloads an uploaded document.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

// Ingester runs the ingestion pipeline.
type Ingester interface {
	Ingest(ctx context.Context, chatID int64, raw string, progress ingest.Progress) (*ingest.Result, error)
}

// Controller runs conversations for all chats.
type Controller struct {
	state   *state.Manager
	ingest  Ingester
	replier Replier
	fetcher Fetcher
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[int64]State
}

// NewController wires a controller.
func NewController(mgr *state.Manager, ing Ingester, r Replier, f Fetcher, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		state:    mgr,
		ingest:   ing,
		replier:  r,
		fetcher:  f,
		logger:   logger,
		sessions: map[int64]State{},
	}
}

// State returns the chat's current conversation state.
func (c *Controller) State(chatID int64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[chatID]
}

func (c *Controller) setState(chatID int64, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == StateIdle {
		delete(c.sessions, chatID)
		return
	}
	c.sessions[chatID] = s
}

// Active reports whether the chat is mid-conversation.
func (c *Controller) Active(chatID int64) bool {
	return c.State(chatID) != StateIdle
}

// Handle feeds one event through the machine and performs the action.
// Runs for the same chat are serialised.
func (c *Controller) Handle(ctx context.Context, chatID int64, ev Event) error {
	unlock := c.state.Lock(chatID)
	defer unlock()
	return c.step(ctx, chatID, ev)
}

func (c *Controller) step(ctx context.Context, chatID int64, ev Event) error {
	cur := c.State(chatID)
	next, act := Transition(cur, ev, len(c.state.UniqueTags(chatID)) > 0)
	c.setState(chatID, next)

	if act != ActionIgnore {
		c.logger.Debug("dialogue transition",
			zap.Int64("chat_id", chatID),
			zap.Stringer("from", cur),
			zap.Stringer("to", next),
			zap.Stringer("action", act))
	}
	return c.perform(ctx, chatID, ev, act)
}

func (c *Controller) perform(ctx context.Context, chatID int64, ev Event, act Action) error {
	switch act {
	case ActionIgnore:
		return nil
	case ActionPromptUpload:
		return c.send(ctx, chatID, Message{Text: promptUploadText, HTML: true})
	case ActionRejectFile:
		return c.send(ctx, chatID, Message{Text: rejectFileText, HTML: true})
	case ActionPromptRetry:
		return c.send(ctx, chatID, Message{Text: promptRetryText})
	case ActionIngestDocument:
		return c.ingestDocument(ctx, chatID, ev.FileID)
	case ActionIngestText:
		if err := c.send(ctx, chatID, Message{Text: thanksText}); err != nil {
			return err
		}
		return c.runIngest(ctx, chatID, ev.Text)
	case ActionReportUnreadable:
		return c.send(ctx, chatID, Message{Text: unreadableText})
	case ActionReportEmpty:
		return c.send(ctx, chatID, Message{Text: emptyText})
	case ActionReportNoNew:
		return c.send(ctx, chatID, Message{Text: ingest.AllDuplicatesText})
	case ActionReportFailure:
		return c.send(ctx, chatID, Message{Text: failureText})
	case ActionReportNoTopics:
		return c.send(ctx, chatID, Message{Text: noTopicsFound})
	case ActionShowTopicKeyboard:
		return c.send(ctx, chatID, c.topicMessage(chatID, topicsFoundText))
	case ActionShowTopics:
		return c.send(ctx, chatID, c.topicMessage(chatID, selectTopicText))
	case ActionNoTopics:
		return c.send(ctx, chatID, Message{Text: noTopicsText})
	case ActionToggleTag:
		return c.toggle(ctx, chatID, ev)
	case ActionFinishTopics:
		msg := Message{Text: finishedText(c.state.Preferences(chatID))}
		return c.editOrSend(ctx, chatID, ev.MessageID, msg)
	case ActionCancel:
		return c.send(ctx, chatID, Message{Text: cancelText})
	default:
		return fmt.Errorf("unhandled action %v", act)
	}
}

func (c *Controller) ingestDocument(ctx context.Context, chatID int64, fileID string) error {
	raw, err := c.fetcher.Fetch(ctx, fileID)
	if err == nil {
		var text string
		text, err = highlight.DecodeText(raw)
		if err == nil {
			c.logger.Info("downloaded upload", zap.Int64("chat_id", chatID), zap.Int("chars", len(text)))
			return c.runIngest(ctx, chatID, text)
		}
	}
	c.logger.Warn("reading upload", zap.Int64("chat_id", chatID), zap.Error(err))
	return c.step(ctx, chatID, Event{Kind: EventIngested, Outcome: OutcomeUnreadable})
}

func (c *Controller) runIngest(ctx context.Context, chatID int64, raw string) error {
	var sendErr error
	progress := ingest.ProgressFunc{
		OnFound: func(r *ingest.Result) {
			sendErr = errors.Join(sendErr, c.send(ctx, chatID, Message{Text: ingest.FormatFound(r)}))
		},
		OnStep: func(i, total, inCollection int) {
			msg := Message{Text: ingest.FormatStep(i, total, inCollection), Silent: true}
			if err := c.send(ctx, chatID, msg); err != nil {
				c.logger.Warn("sending progress", zap.Int64("chat_id", chatID), zap.Error(err))
			}
		},
	}

	res, err := c.ingest.Ingest(ctx, chatID, raw, progress)
	outcome := OutcomeIngested
	switch {
	case errors.Is(err, ingest.ErrNoHighlights):
		outcome = OutcomeEmpty
	case err != nil && res == nil:
		c.logger.Error("ingest failed", zap.Int64("chat_id", chatID), zap.Error(err))
		outcome = OutcomeFailed
	case err != nil:
		// Partial progress was stored; report what we have.
		c.logger.Error("ingest incomplete", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	if res != nil && res.New == 0 {
		outcome = OutcomeNoNew
	}
	if res != nil && res.New > 0 {
		if err := c.send(ctx, chatID, Message{Text: ingest.FormatResult(res)}); err != nil {
			sendErr = errors.Join(sendErr, err)
		}
	}

	if err := c.step(ctx, chatID, Event{Kind: EventIngested, Outcome: outcome}); err != nil {
		sendErr = errors.Join(sendErr, err)
	}
	return sendErr
}

func (c *Controller) toggle(ctx context.Context, chatID int64, ev Event) error {
	selected := c.state.TogglePreference(chatID, ev.Tag)
	if err := c.state.Save(ctx); err != nil {
		c.logger.Error("saving preferences", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	c.logger.Debug("toggled topic",
		zap.Int64("chat_id", chatID),
		zap.String("tag", ev.Tag),
		zap.Bool("selected", selected))

	prefs := c.state.Preferences(chatID)
	msg := Message{
		Text:     currentTopicsText(prefs),
		Keyboard: TopicKeyboard(c.state.UniqueTags(chatID), prefs),
	}
	return c.editOrSend(ctx, chatID, ev.MessageID, msg)
}

func (c *Controller) topicMessage(chatID int64, text string) Message {
	return Message{
		Text:     text,
		Keyboard: TopicKeyboard(c.state.UniqueTags(chatID), c.state.Preferences(chatID)),
	}
}

func (c *Controller) send(ctx context.Context, chatID int64, msg Message) error {
	if _, err := c.replier.Send(ctx, chatID, msg); err != nil {
		return fmt.Errorf("sending reply: %w", err)
	}
	return nil
}

// editOrSend edits the keyboard message in place, falling back to a new
// message when there is nothing to edit or the edit fails.
func (c *Controller) editOrSend(ctx context.Context, chatID int64, messageID int, msg Message) error {
	if messageID != 0 {
		err := c.replier.Edit(ctx, chatID, messageID, msg)
		if err == nil {
			return nil
		}
		c.logger.Warn("editing message, sending instead", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return c.send(ctx, chatID, msg)
}
