// Package reminder decides and delivers the weekly nudge.
//
// Due is pure: given a time and a reminder snapshot it returns who is due
// and what the state would become if every send succeeded. Scheduler
// wraps it with delivery, persistence and an interval loop.
package reminder

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/hurttlocker/nuggets/internal/state"
)

// Week is the minimum gap between nudges.
const Week = 7 * 24 * time.Hour

// SendHour is the earliest UTC hour on Monday a nudge goes out.
const SendHour = 9

// Delivery is one due nudge.
type Delivery struct {
	ChatID      int64  `json:"chat_id"`
	PhraseIndex int    `json:"phrase_index"`
	Text        string `json:"text"`
	Sent        bool   `json:"sent"`
	Error       string `json:"error,omitempty"`
}

// InWindow reports whether now is Monday at or after SendHour UTC.
func InWindow(now time.Time) bool {
	now = now.UTC()
	return now.Weekday() == time.Monday && now.Hour() >= SendHour
}

// Eligible reports whether a chat last nudged at lastSent (unix seconds,
// 0 for never) should be nudged at now.
func Eligible(now time.Time, lastSent float64) bool {
	if !InWindow(now) {
		return false
	}
	if lastSent == 0 {
		return true
	}
	return now.Sub(fromUnix(lastSent)) >= Week
}

// Due returns the nudges to send at now, ordered by chat id, and the
// reminder state after all of them succeed. Entries whose key is not a
// chat id are skipped. snap is not modified.
func Due(now time.Time, snap state.ReminderState) ([]Delivery, state.ReminderState) {
	updated := snap.Clone()
	keys := make([]string, 0, len(snap.LastSent))
	for k := range snap.LastSent {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var due []Delivery
	sentAt := toUnix(now)
	for _, key := range keys {
		chatID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		if !Eligible(now, snap.LastSent[key]) {
			continue
		}
		idx := mod(snap.PhraseIndex[key], len(Phrases))
		due = append(due, Delivery{ChatID: chatID, PhraseIndex: idx, Text: Phrases[idx]})
		updated.LastSent[key] = sentAt
		updated.PhraseIndex[key] = (idx + 1) % len(Phrases)
	}
	return due, updated
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// Timestamps are stored as float unix seconds.
func toUnix(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

func fromUnix(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
