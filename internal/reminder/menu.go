package reminder

import (
	"context"

	"github.com/hurttlocker/nuggets/internal/dialogue"
	"github.com/hurttlocker/nuggets/internal/state"
)

// Callback data for the reminder menu.
const (
	CallbackOn  = "reminders_on"
	CallbackOff = "reminders_off"
)

const (
	enabledText         = "Weekly reminders ENABLED! You'll get a fun nudge every Monday at 9 AM (UTC)."
	alreadyEnabledText  = "Weekly reminders are already ENABLED."
	disabledText        = "Weekly reminders DISABLED. You won't receive nudges anymore."
	alreadyDisabledText = "Weekly reminders are already DISABLED."
	// ErrorText is shown when a settings change could not be saved.
	ErrorText = "Sorry, there was an error updating your reminder settings. Please try again."
)

// Menu is the /reminders reply with its status line and buttons.
func Menu(enabled bool) dialogue.Message {
	status := "DISABLED."
	if enabled {
		status = "ENABLED."
	}
	return dialogue.Message{
		Text: "Your weekly reminders are currently " + status + "\n\nChoose an option:",
		Keyboard: [][]dialogue.Button{
			{{Text: "Enable Reminders", Data: CallbackOn}},
			{{Text: "Disable Reminders", Data: CallbackOff}},
		},
	}
}

// IsCallback reports whether data belongs to the reminder menu.
func IsCallback(data string) bool {
	return data == CallbackOn || data == CallbackOff
}

// ApplyCallback enables or disables reminders for the chat, persists a
// change, and returns the confirmation text.
func ApplyCallback(ctx context.Context, mgr *state.Manager, chatID int64, data string) (string, error) {
	switch data {
	case CallbackOn:
		if !mgr.EnableReminders(chatID) {
			return alreadyEnabledText, nil
		}
		if err := mgr.Save(ctx); err != nil {
			return ErrorText, err
		}
		return enabledText, nil
	case CallbackOff:
		if !mgr.DisableReminders(chatID) {
			return alreadyDisabledText, nil
		}
		if err := mgr.Save(ctx); err != nil {
			return ErrorText, err
		}
		return disabledText, nil
	}
	return "", nil
}
