package state

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurttlocker/nuggets/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	m := NewManager(s, nil)
	m.Load(context.Background())
	return m, s
}

// failingStore errors on every read.
type failingStore struct{ store.Store }

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("boom")
}

func TestManager_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, s := newTestManager(t)

	m.PutHighlight(42, "Love conquers all.", []string{"relationships"})
	m.TogglePreference(42, "relationships")
	m.EnableReminders(42)
	require.NoError(t, m.Save(ctx))

	again := NewManager(s, nil)
	again.Load(ctx)
	assert.Equal(t, map[string][]string{"Love conquers all.": {"relationships"}}, again.Highlights(42))
	assert.Equal(t, []string{"relationships"}, again.Preferences(42))
	assert.True(t, again.RemindersEnabled(42))
}

func TestManager_SavesVersionedEnvelope(t *testing.T) {
	ctx := context.Background()
	m, s := newTestManager(t)
	m.PutHighlight(1, "some highlight text", []string{"wisdom"})
	require.NoError(t, m.Save(ctx))

	raw, ok, err := s.Get(ctx, KeyHighlights)
	require.NoError(t, err)
	require.True(t, ok)

	var env struct {
		Version int                            `json:"version"`
		Data    map[string]map[string][]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, []string{"wisdom"}, env.Data["1"]["some highlight text"])
}

func TestManager_LoadsLegacyBlobs(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.SetMany(ctx, map[string][]byte{
		KeyHighlights:  []byte(`{"7": {"Be kind, always and everywhere.": ["relationships"]}}`),
		KeyPreferences: []byte(`{"7": ["relationships", "wisdom"]}`),
		KeyReminders:   []byte(`{"last_sent_time": {"7": 1700000000.5}, "phrase_index": {"7": 3}}`),
	}))

	m := NewManager(s, nil)
	m.Load(ctx)

	assert.Equal(t, 1, m.HighlightCount(7))
	assert.Equal(t, []string{"relationships", "wisdom"}, m.Preferences(7))
	r := m.Reminders()
	assert.Equal(t, 1700000000.5, r.LastSent["7"])
	assert.Equal(t, 3, r.PhraseIndex["7"])
}

func TestManager_CorruptRecordResetsOnlyThatRecord(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.SetMany(ctx, map[string][]byte{
		KeyHighlights:  []byte(`{not json`),
		KeyPreferences: []byte(`{"7": ["wisdom"]}`),
		KeyReminders:   []byte(`{"version": 99, "data": {}}`),
	}))

	m := NewManager(s, nil)
	m.Load(ctx)

	assert.Equal(t, 0, m.HighlightCount(7))
	assert.Equal(t, []string{"wisdom"}, m.Preferences(7))
	assert.Empty(t, m.Reminders().LastSent)

	// Mutations still work on the reset record.
	m.PutHighlight(7, "fresh start text", nil)
	assert.Equal(t, []string{"untagged"}, m.Highlights(7)["fresh start text"])
}

func TestManager_NullRecordsAreUsable(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.SetMany(ctx, map[string][]byte{
		KeyHighlights: []byte(`null`),
		KeyReminders:  []byte(`{"last_sent_time": null}`),
	}))
	m := NewManager(s, nil)
	m.Load(ctx)

	m.PutHighlight(1, "a long enough text", []string{"x"})
	assert.True(t, m.EnableReminders(1))
}

func TestManager_StoreReadFailureStartsEmpty(t *testing.T) {
	m := NewManager(failingStore{store.NewMemoryStore()}, nil)
	m.Load(context.Background())
	assert.Equal(t, Stats{}, m.Stats())
}

func TestManager_TogglePreferenceIsItsOwnInverse(t *testing.T) {
	m, _ := newTestManager(t)
	m.TogglePreference(5, "wisdom")
	m.TogglePreference(5, "courage")
	before := m.Preferences(5)

	assert.True(t, m.TogglePreference(5, "learning"))
	assert.False(t, m.TogglePreference(5, "learning"))
	assert.Equal(t, before, m.Preferences(5))

	assert.False(t, m.TogglePreference(5, "wisdom"))
	assert.Equal(t, []string{"courage"}, m.Preferences(5))
}

func TestManager_UniqueTagsSorted(t *testing.T) {
	m, _ := newTestManager(t)
	m.PutHighlight(3, "first", []string{"wisdom", "courage"})
	m.PutHighlight(3, "second", []string{"courage", "learning"})
	assert.Equal(t, []string{"courage", "learning", "wisdom"}, m.UniqueTags(3))
	assert.Empty(t, m.UniqueTags(4))
}

func TestManager_HighlightsReturnsCopy(t *testing.T) {
	m, _ := newTestManager(t)
	m.PutHighlight(3, "first", []string{"wisdom"})
	got := m.Highlights(3)
	got["first"][0] = "mutated"
	got["other"] = nil
	assert.Equal(t, map[string][]string{"first": {"wisdom"}}, m.Highlights(3))
	assert.True(t, m.HasHighlight(3, "first"))
	assert.False(t, m.HasHighlight(3, "other"))
}

func TestManager_EnableDisableReminders(t *testing.T) {
	m, _ := newTestManager(t)

	assert.False(t, m.RemindersEnabled(9))
	assert.True(t, m.EnableReminders(9))
	assert.False(t, m.EnableReminders(9))

	r := m.Reminders()
	assert.Equal(t, float64(0), r.LastSent["9"])
	assert.Equal(t, 0, r.PhraseIndex["9"])

	assert.True(t, m.DisableReminders(9))
	assert.False(t, m.DisableReminders(9))
	r = m.Reminders()
	assert.NotContains(t, r.LastSent, "9")
	assert.NotContains(t, r.PhraseIndex, "9")
}

func TestManager_ApplyRemindersSkipsDisabled(t *testing.T) {
	m, _ := newTestManager(t)
	m.EnableReminders(1)
	m.EnableReminders(2)

	updated := m.Reminders()
	updated.LastSent["1"] = 100
	updated.PhraseIndex["1"] = 1
	updated.LastSent["2"] = 100
	updated.PhraseIndex["2"] = 1

	m.DisableReminders(2)
	assert.Equal(t, 1, m.ApplyReminders(updated, 1, 2))

	r := m.Reminders()
	assert.Equal(t, float64(100), r.LastSent["1"])
	assert.Equal(t, 1, r.PhraseIndex["1"])
	assert.NotContains(t, r.LastSent, "2")
}

func TestManager_KnownChatsIsUnion(t *testing.T) {
	m, _ := newTestManager(t)
	m.PutHighlight(1, "text one here", nil)
	m.TogglePreference(2, "wisdom")
	m.EnableReminders(3)
	m.EnableReminders(1)
	assert.Equal(t, []string{"1", "2", "3"}, m.KnownChats())
}

func TestManager_RefreshKeepsUnsavedChanges(t *testing.T) {
	ctx := context.Background()
	m, s := newTestManager(t)
	m.PutHighlight(1, "saved highlight", nil)
	require.NoError(t, m.Save(ctx))

	// Another writer changes the store.
	other := NewManager(s, nil)
	other.Load(ctx)
	other.EnableReminders(1)
	require.NoError(t, other.Save(ctx))

	assert.True(t, m.Refresh(ctx))
	assert.True(t, m.RemindersEnabled(1))

	m.PutHighlight(1, "unsaved highlight", nil)
	assert.False(t, m.Refresh(ctx))
	assert.True(t, m.HasHighlight(1, "unsaved highlight"))

	require.NoError(t, m.Save(ctx))
	assert.True(t, m.Refresh(ctx))
	assert.True(t, m.HasHighlight(1, "unsaved highlight"))
}

func TestManager_LockSerialisesPerChat(t *testing.T) {
	m, _ := newTestManager(t)
	unlock := m.Lock(1)

	acquired := make(chan struct{})
	go func() {
		u := m.Lock(1)
		close(acquired)
		u()
	}()

	// A different chat is not blocked.
	other := m.Lock(2)
	other()

	select {
	case <-acquired:
		t.Fatal("second lock on chat 1 acquired while held")
	default:
	}
	unlock()
	<-acquired
}

func TestManager_Stats(t *testing.T) {
	m, _ := newTestManager(t)
	m.PutHighlight(1, "a", nil)
	m.PutHighlight(1, "b", nil)
	m.PutHighlight(2, "c", nil)
	m.EnableReminders(2)
	assert.Equal(t, Stats{Chats: 2, Highlights: 3, RemindersEnabled: 1}, m.Stats())
}
