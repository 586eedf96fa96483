package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurttlocker/nuggets/internal/ingest"
	"github.com/hurttlocker/nuggets/internal/nugget"
	"github.com/hurttlocker/nuggets/internal/reminder"
	"github.com/hurttlocker/nuggets/internal/state"
	"github.com/hurttlocker/nuggets/internal/store"
	"github.com/hurttlocker/nuggets/internal/telegram"
)

type outgoing struct {
	chatID    int64
	messageID int // non-zero for edits
	text      string
	opts      telegram.SendOptions
}

type fakeAPI struct {
	mu       sync.Mutex
	out      []outgoing
	answered []string
	files    map[string][]byte
	editErr  error
	nextID   int

	// Sends to stallChat report on stalled and then wait for release.
	stallChat int64
	stalled   chan struct{}
	release   chan struct{}
}

func (f *fakeAPI) SendMessage(_ context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error) {
	if f.release != nil && chatID == f.stallChat {
		select {
		case f.stalled <- struct{}{}:
		default:
		}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.out = append(f.out, outgoing{chatID: chatID, text: text, opts: opts})
	return &telegram.Message{MessageID: f.nextID, Chat: telegram.Chat{ID: chatID}}, nil
}

func (f *fakeAPI) EditMessageText(_ context.Context, chatID int64, messageID int, text string, opts telegram.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.out = append(f.out, outgoing{chatID: chatID, messageID: messageID, text: text, opts: opts})
	return nil
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, id)
	return nil
}

func (f *fakeAPI) Fetch(_ context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[fileID]
	if !ok {
		return nil, errors.New("no such file")
	}
	return b, nil
}

func (f *fakeAPI) last() outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out[len(f.out)-1]
}

func (f *fakeAPI) textsFor(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, o := range f.out {
		if o.chatID == chatID {
			out = append(out, o.text)
		}
	}
	return out
}

type keywordTagger struct{}

func (keywordTagger) Tags(_ context.Context, text string) []string {
	if strings.Contains(strings.ToLower(text), "brave") {
		return []string{"courage"}
	}
	return []string{"wisdom"}
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *state.Manager) {
	t.Helper()
	mgr := state.NewManager(store.NewMemoryStore(), nil)
	mgr.Load(context.Background())
	eng := ingest.NewEngine(mgr, keywordTagger{}, ingest.Options{
		Sleep: func(context.Context, time.Duration) error { return nil },
	}, nil)
	api := &fakeAPI{files: map[string][]byte{}}
	return New(api, mgr, eng, nil), api, mgr
}

func command(chatID int64, text string) telegram.Update {
	name := strings.Fields(text)[0]
	return telegram.Update{Message: &telegram.Message{
		Chat:     telegram.Chat{ID: chatID},
		From:     &telegram.User{ID: chatID, FirstName: "Ada"},
		Text:     text,
		Entities: []telegram.Entity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func callback(chatID int64, messageID int, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb-" + data,
		Data:    data,
		Message: &telegram.Message{MessageID: messageID, Chat: telegram.Chat{ID: chatID}},
	}}
}

func TestStartEscapesName(t *testing.T) {
	b, api, _ := newTestBot(t)
	u := command(7, "/start")
	u.Message.From = &telegram.User{ID: 7, FirstName: "<Ada>", LastName: "&Co"}
	b.Process(context.Background(), u)

	got := api.last()
	assert.Equal(t, telegram.ParseModeHTML, got.opts.ParseMode)
	assert.Contains(t, got.text, `<a href="tg://user?id=7">&lt;Ada&gt; &amp;Co</a>`)
	assert.Contains(t, got.text, "<b>automatically categorize them by meaning</b>")
}

func TestHelpAndUnknownCommand(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.Process(context.Background(), command(1, "/help"))
	b.Process(context.Background(), command(1, "/nope"))

	texts := api.textsFor(1)
	require.Len(t, texts, 1)
	assert.Equal(t, helpText, texts[0])
	assert.Empty(t, api.last().opts.ParseMode)
}

func TestWisdomWithoutHighlights(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.Process(context.Background(), command(1, "/wisdom"))
	assert.Equal(t, nugget.NoHighlightsText, api.last().text)
}

func TestUploadSelectAndWisdom(t *testing.T) {
	b, api, mgr := newTestBot(t)
	ctx := context.Background()
	api.files["doc"] = []byte("The brave man dies but once\n==========\nKnowledge is a treasure\n==========\n")

	b.Process(ctx, command(1, "/upload"))
	b.Process(ctx, telegram.Update{Message: &telegram.Message{
		Chat:     telegram.Chat{ID: 1},
		Document: &telegram.Document{FileID: "doc", FileName: "My Clippings.txt"},
	}})
	assert.Equal(t, 2, mgr.HighlightCount(1))

	keyboard := api.last().opts.ReplyMarkup
	require.NotNil(t, keyboard)
	assert.Equal(t, "tag_courage", keyboard.InlineKeyboard[0][0].CallbackData)

	b.Process(ctx, callback(1, 4, "tag_courage"))
	edit := api.last()
	assert.Equal(t, 4, edit.messageID)
	assert.Equal(t, "✅ #courage", edit.opts.ReplyMarkup.InlineKeyboard[0][0].Text)

	b.Process(ctx, callback(1, 4, "done_topics"))
	assert.Equal(t, []string{"cb-tag_courage", "cb-done_topics"}, api.answered)
	assert.Equal(t, []string{"courage"}, mgr.Preferences(1))

	b.Process(ctx, command(1, "/wisdom"))
	assert.Equal(t, "The brave man dies but once\n\nTags: #courage", api.last().text)
}

func TestTextOutsideDialogueIgnored(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.Process(context.Background(), telegram.Update{Message: &telegram.Message{
		Chat: telegram.Chat{ID: 1},
		Text: "Knowledge is a treasure",
	}})
	assert.Empty(t, api.textsFor(1))
}

func TestRemindersMenuAndCallbacks(t *testing.T) {
	b, api, mgr := newTestBot(t)
	ctx := context.Background()

	b.Process(ctx, command(3, "/reminders"))
	menu := api.last()
	assert.Contains(t, menu.text, "currently DISABLED.")
	assert.Equal(t, reminder.CallbackOn, menu.opts.ReplyMarkup.InlineKeyboard[0][0].CallbackData)

	b.Process(ctx, callback(3, 1, reminder.CallbackOn))
	assert.True(t, mgr.RemindersEnabled(3))
	assert.Equal(t, 1, api.last().messageID)
	assert.Contains(t, api.last().text, "ENABLED!")

	b.Process(ctx, callback(3, 1, reminder.CallbackOn))
	assert.Equal(t, "Weekly reminders are already ENABLED.", api.last().text)

	api.editErr = errors.New("message is not modified")
	b.Process(ctx, callback(3, 1, reminder.CallbackOff))
	assert.False(t, mgr.RemindersEnabled(3))
	assert.Zero(t, api.last().messageID, "falls back to a new message")
	assert.Len(t, api.answered, 3)
}

func TestHandleUpdateKeepsPerChatOrder(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.idle = 20 * time.Millisecond
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		b.HandleUpdate(ctx, command(1, "/help"))
		b.HandleUpdate(ctx, command(2, "/wisdom"))
	}
	b.HandleUpdate(ctx, telegram.Update{UpdateID: 99})
	b.Wait()

	assert.Len(t, api.textsFor(1), 5)
	assert.Len(t, api.textsFor(2), 5)
	for _, text := range api.textsFor(2) {
		assert.Equal(t, nugget.NoHighlightsText, text)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Empty(t, b.mailboxes)
}

func TestHandleUpdateFullMailboxDoesNotBlockOtherChats(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.idle = 20 * time.Millisecond
	api.stallChat = 1
	api.stalled = make(chan struct{}, 1)
	api.release = make(chan struct{})
	ctx := context.Background()

	b.HandleUpdate(ctx, command(1, "/help"))
	select {
	case <-api.stalled:
	case <-time.After(time.Second):
		t.Fatal("chat 1 never started sending")
	}
	for i := 0; i < mailboxSize+2; i++ {
		b.HandleUpdate(ctx, command(1, "/help"))
	}

	done := make(chan struct{})
	go func() {
		b.HandleUpdate(ctx, command(2, "/help"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("HandleUpdate for chat 2 blocked behind chat 1")
	}
	require.Eventually(t, func() bool { return len(api.textsFor(2)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, api.textsFor(1))

	close(api.release)
	b.Wait()
	// The in-flight update plus a full mailbox; the overflow was dropped.
	assert.Len(t, api.textsFor(1), mailboxSize+1)
	assert.Equal(t, helpText, api.textsFor(2)[0])
}

func TestSendOptionsKeyboard(t *testing.T) {
	opts := sendOptions(reminder.Menu(true))
	require.NotNil(t, opts.ReplyMarkup)
	assert.Len(t, opts.ReplyMarkup.InlineKeyboard, 2)
	assert.Equal(t, "Disable Reminders", opts.ReplyMarkup.InlineKeyboard[1][0].Text)
	assert.False(t, opts.DisableNotification)
}
