package bot

import (
	"context"

	"github.com/hurttlocker/nuggets/internal/dialogue"
	"github.com/hurttlocker/nuggets/internal/telegram"
)

// API is the subset of the Telegram client the bot uses.
type API interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts telegram.SendOptions) error
	AnswerCallbackQuery(ctx context.Context, id, text string) error
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

// Transport adapts API to the dialogue and reminder interfaces.
type Transport struct {
	API API
}

func sendOptions(msg dialogue.Message) telegram.SendOptions {
	opts := telegram.SendOptions{DisableNotification: msg.Silent}
	if msg.HTML {
		opts.ParseMode = telegram.ParseModeHTML
	}
	if len(msg.Keyboard) > 0 {
		rows := make([][]telegram.InlineKeyboardButton, len(msg.Keyboard))
		for i, row := range msg.Keyboard {
			rows[i] = make([]telegram.InlineKeyboardButton, len(row))
			for j, b := range row {
				rows[i][j] = telegram.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data}
			}
		}
		opts.ReplyMarkup = &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
	}
	return opts
}

// Send implements dialogue.Replier.
func (t Transport) Send(ctx context.Context, chatID int64, msg dialogue.Message) (int, error) {
	m, err := t.API.SendMessage(ctx, chatID, msg.Text, sendOptions(msg))
	if err != nil {
		return 0, err
	}
	return m.MessageID, nil
}

// Edit implements dialogue.Replier.
func (t Transport) Edit(ctx context.Context, chatID int64, messageID int, msg dialogue.Message) error {
	return t.API.EditMessageText(ctx, chatID, messageID, msg.Text, sendOptions(msg))
}

// SendText implements reminder.Sender.
func (t Transport) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := t.API.SendMessage(ctx, chatID, text, telegram.SendOptions{})
	return err
}

// Fetch implements dialogue.Fetcher.
func (t Transport) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	return t.API.Fetch(ctx, fileID)
}
