// Package state owns the three persisted records of the bot: each chat's
// highlight collection, its topic preferences, and the weekly reminder
// bookkeeping. All reads and writes go through a Manager.
package state

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/hurttlocker/nuggets/internal/store"
)

// Store keys of the three records.
const (
	KeyHighlights  = "user_highlights"
	KeyPreferences = "user_preferences"
	KeyReminders   = "reminder_state"
)

// Collection maps chat id to highlight text to tags.
type Collection map[string]map[string][]string

// Preferences maps chat id to the selected tags in selection order.
type Preferences map[string][]string

// ReminderState tracks weekly nudges. Presence of a chat in LastSent is
// the enabled flag; 0 means enabled but never sent.
type ReminderState struct {
	LastSent    map[string]float64 `json:"last_sent_time"`
	PhraseIndex map[string]int     `json:"phrase_index"`
}

// NewReminderState returns an empty, non-nil state.
func NewReminderState() ReminderState {
	return ReminderState{LastSent: map[string]float64{}, PhraseIndex: map[string]int{}}
}

// Clone returns a deep copy.
func (r ReminderState) Clone() ReminderState {
	out := NewReminderState()
	for k, v := range r.LastSent {
		out.LastSent[k] = v
	}
	for k, v := range r.PhraseIndex {
		out.PhraseIndex[k] = v
	}
	return out
}

// Stats summarises the whole state.
type Stats struct {
	Chats            int `json:"chats"`
	Highlights       int `json:"highlights"`
	RemindersEnabled int `json:"reminders_enabled"`
}

// Manager is the single owner of the in-memory records.
type Manager struct {
	store  store.Store
	logger *zap.Logger

	mu         sync.RWMutex
	highlights Collection
	prefs      Preferences
	reminders  ReminderState
	gen        uint64 // bumped on every mutation
	savedGen   uint64 // gen as of the last successful Save

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewManager creates an empty manager backed by s. Call Load to read
// persisted records.
func NewManager(s store.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:      s,
		logger:     logger,
		highlights: Collection{},
		prefs:      Preferences{},
		reminders:  NewReminderState(),
		locks:      map[string]*sync.Mutex{},
	}
}

// ChatKey is the record key for a chat id.
func ChatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

type loaded struct {
	highlights Collection
	prefs      Preferences
	reminders  ReminderState
}

// readAll reads and decodes the three records. A record that cannot be
// read or decoded comes back empty.
func (m *Manager) readAll(ctx context.Context) loaded {
	out := loaded{highlights: Collection{}, prefs: Preferences{}, reminders: NewReminderState()}

	m.readRecord(ctx, KeyHighlights, &out.highlights)
	m.readRecord(ctx, KeyPreferences, &out.prefs)
	m.readRecord(ctx, KeyReminders, &out.reminders)

	if out.highlights == nil {
		out.highlights = Collection{}
	}
	for k, v := range out.highlights {
		if v == nil {
			out.highlights[k] = map[string][]string{}
		}
	}
	if out.prefs == nil {
		out.prefs = Preferences{}
	}
	if out.reminders.LastSent == nil {
		out.reminders.LastSent = map[string]float64{}
	}
	if out.reminders.PhraseIndex == nil {
		out.reminders.PhraseIndex = map[string]int{}
	}
	return out
}

func (m *Manager) readRecord(ctx context.Context, key string, dst any) {
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Error("reading record, starting empty", zap.String("key", key), zap.Error(err))
		return
	}
	if !ok {
		m.logger.Info("no record found, starting empty", zap.String("key", key))
		return
	}
	if err := decodeRecord(raw, dst); err != nil {
		m.logger.Error("decoding record, starting empty", zap.String("key", key), zap.Error(err))
		// dst may be partially filled.
		switch d := dst.(type) {
		case *Collection:
			*d = Collection{}
		case *Preferences:
			*d = Preferences{}
		case *ReminderState:
			*d = NewReminderState()
		}
		return
	}
	m.logger.Debug("loaded record", zap.String("key", key))
}

// Load replaces the in-memory records with the persisted ones.
func (m *Manager) Load(ctx context.Context) {
	l := m.readAll(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.highlights, m.prefs, m.reminders = l.highlights, l.prefs, l.reminders
	m.savedGen = m.gen
}

// Refresh reloads the persisted records unless there are unsaved
// in-memory changes, in which case memory is newer and is kept. It
// reports whether a reload happened.
func (m *Manager) Refresh(ctx context.Context) bool {
	m.mu.RLock()
	startGen := m.gen
	clean := m.gen == m.savedGen
	m.mu.RUnlock()
	if !clean {
		return false
	}

	l := m.readAll(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != startGen {
		return false
	}
	m.highlights, m.prefs, m.reminders = l.highlights, l.prefs, l.reminders
	return true
}

// Save writes all three records.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.RLock()
	gen := m.gen
	h, herr := encodeRecord(m.highlights)
	p, perr := encodeRecord(m.prefs)
	r, rerr := encodeRecord(m.reminders)
	m.mu.RUnlock()

	for _, err := range []error{herr, perr, rerr} {
		if err != nil {
			return fmt.Errorf("encoding state: %w", err)
		}
	}

	if err := m.store.SetMany(ctx, map[string][]byte{
		KeyHighlights:  h,
		KeyPreferences: p,
		KeyReminders:   r,
	}); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}

	m.mu.Lock()
	if gen > m.savedGen {
		m.savedGen = gen
	}
	m.mu.Unlock()
	return nil
}

// Lock serialises work for one chat. The returned func releases it.
func (m *Manager) Lock(chatID int64) func() {
	key := ChatKey(chatID)
	m.locksMu.Lock()
	mu, ok := m.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[key] = mu
	}
	m.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// --- highlights ---

// Highlights returns a copy of the chat's collection.
func (m *Manager) Highlights(chatID int64) map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.highlights[ChatKey(chatID)]
	out := make(map[string][]string, len(src))
	for text, tags := range src {
		out[text] = append([]string(nil), tags...)
	}
	return out
}

// HasHighlight reports whether text is already stored for the chat.
func (m *Manager) HasHighlight(chatID int64, text string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.highlights[ChatKey(chatID)][text]
	return ok
}

// PutHighlight stores text with tags. Empty tags become ["untagged"].
func (m *Manager) PutHighlight(chatID int64, text string, tags []string) {
	if len(tags) == 0 {
		tags = []string{"untagged"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ChatKey(chatID)
	coll, ok := m.highlights[key]
	if !ok {
		coll = map[string][]string{}
		m.highlights[key] = coll
	}
	coll[text] = append([]string(nil), tags...)
	m.gen++
}

// HighlightCount is the size of the chat's collection.
func (m *Manager) HighlightCount(chatID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.highlights[ChatKey(chatID)])
}

// UniqueTags returns every tag in the chat's collection, sorted.
func (m *Manager) UniqueTags(chatID int64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []string
	for _, tags := range m.highlights[ChatKey(chatID)] {
		all = append(all, tags...)
	}
	out := lo.Uniq(all)
	sort.Strings(out)
	return out
}

// --- preferences ---

// Preferences returns the chat's selected tags in selection order.
func (m *Manager) Preferences(chatID int64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.prefs[ChatKey(chatID)]...)
}

// TogglePreference adds tag if absent, removes it if present, and
// reports whether it is now selected.
func (m *Manager) TogglePreference(chatID int64, tag string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ChatKey(chatID)
	cur := m.prefs[key]
	m.gen++
	if lo.Contains(cur, tag) {
		m.prefs[key] = lo.Without(cur, tag)
		return false
	}
	m.prefs[key] = append(append([]string(nil), cur...), tag)
	return true
}

// --- reminders ---

// RemindersEnabled reports whether the chat receives weekly nudges.
func (m *Manager) RemindersEnabled(chatID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.reminders.LastSent[ChatKey(chatID)]
	return ok
}

// EnableReminders turns nudges on with a never-sent timestamp and the
// first phrase. It reports false if they were already on.
func (m *Manager) EnableReminders(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ChatKey(chatID)
	if _, ok := m.reminders.LastSent[key]; ok {
		return false
	}
	m.reminders.LastSent[key] = 0
	m.reminders.PhraseIndex[key] = 0
	m.gen++
	return true
}

// DisableReminders removes both reminder entries. It reports false if
// nudges were already off.
func (m *Manager) DisableReminders(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ChatKey(chatID)
	if _, ok := m.reminders.LastSent[key]; !ok {
		return false
	}
	delete(m.reminders.LastSent, key)
	delete(m.reminders.PhraseIndex, key)
	m.gen++
	return true
}

// Reminders returns a snapshot of the reminder state.
func (m *Manager) Reminders() ReminderState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reminders.Clone()
}

// ApplyReminders copies the entries for the given chats from updated.
// Chats that disabled reminders since the snapshot was taken are left
// disabled. It returns how many chats were applied.
func (m *Manager) ApplyReminders(updated ReminderState, chatIDs ...int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range chatIDs {
		key := ChatKey(id)
		if _, enabled := m.reminders.LastSent[key]; !enabled {
			continue
		}
		sent, ok := updated.LastSent[key]
		if !ok {
			continue
		}
		m.reminders.LastSent[key] = sent
		m.reminders.PhraseIndex[key] = updated.PhraseIndex[key]
		n++
	}
	if n > 0 {
		m.gen++
	}
	return n
}

// KnownChats is the union of record keys across all three records, sorted.
func (m *Manager) KnownChats() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := lo.Keys(m.highlights)
	keys = append(keys, lo.Keys(m.prefs)...)
	keys = append(keys, lo.Keys(m.reminders.LastSent)...)
	out := lo.Uniq(keys)
	sort.Strings(out)
	return out
}

// Stats counts chats, stored highlights and reminder subscribers.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, coll := range m.highlights {
		total += len(coll)
	}
	return Stats{
		Chats:            len(m.highlights),
		Highlights:       total,
		RemindersEnabled: len(m.reminders.LastSent),
	}
}
