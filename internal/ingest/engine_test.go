package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurttlocker/nuggets/internal/state"
	"github.com/hurttlocker/nuggets/internal/store"
)

// countingStore counts SetMany calls.
type countingStore struct {
	*store.MemoryStore
	writes int
}

func (c *countingStore) SetMany(ctx context.Context, v map[string][]byte) error {
	c.writes++
	return c.MemoryStore.SetMany(ctx, v)
}

type stubTagger struct {
	calls  []string
	panics map[string]bool
}

func (s *stubTagger) Tags(_ context.Context, text string) []string {
	s.calls = append(s.calls, text)
	if s.panics[text] {
		panic("bad highlight")
	}
	if strings.Contains(text, "brave") {
		return []string{"courage"}
	}
	return []string{"wisdom"}
}

type recordingProgress struct {
	found *Result
	steps []string
}

func (p *recordingProgress) Found(r *Result) {
	cp := *r
	p.found = &cp
}

func (p *recordingProgress) Step(i, total, inCollection int) {
	p.steps = append(p.steps, FormatStep(i, total, inCollection))
}

type fakeSleeper struct{ waits []time.Duration }

func (f *fakeSleeper) sleep(_ context.Context, d time.Duration) error {
	f.waits = append(f.waits, d)
	return nil
}

type fixture struct {
	mgr    *state.Manager
	store  *countingStore
	tagger *stubTagger
	sleep  *fakeSleeper
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cs := &countingStore{MemoryStore: store.NewMemoryStore()}
	mgr := state.NewManager(cs, nil)
	mgr.Load(context.Background())
	f := &fixture{mgr: mgr, store: cs, tagger: &stubTagger{}, sleep: &fakeSleeper{}}
	f.engine = NewEngine(mgr, f.tagger, Options{Sleep: f.sleep.sleep}, nil)
	return f
}

// clippings builds n distinct highlights separated by Kindle markers.
func clippings(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Highlight number %03d is long enough\n==========\n", i)
	}
	return b.String()
}

func TestIngest_NoHighlights(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine.Ingest(context.Background(), 1, "short\n==========\n", nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoHighlights)
	assert.Equal(t, 0, f.store.writes)
}

func TestIngest_EndToEndScenario(t *testing.T) {
	f := newFixture(t)
	raw := "Be brave.\n==========\nLove conquers all.\n=========="

	res, err := f.engine.Ingest(context.Background(), 1, raw, nil)
	require.NoError(t, err)

	// "Be brave." is 9 characters and falls under the length floor.
	assert.Equal(t, 1, res.Found)
	assert.Equal(t, 1, res.New)
	assert.Equal(t, map[string][]string{"Love conquers all.": {"wisdom"}}, f.mgr.Highlights(1))
}

func TestIngest_DuplicateSuppression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Ingest(ctx, 1, "The first highlight text\n==========\n", nil)
	require.NoError(t, err)

	p := &recordingProgress{}
	raw := "The first highlight text\n==========\nA second highlight text\n==========\nA second highlight text\n"
	res, err := f.engine.Ingest(ctx, 1, raw, p)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Found)
	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, 1, res.New)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, f.mgr.HighlightCount(1))
	require.NotNil(t, p.found)
	assert.Equal(t, "Found 3 highlights. 2 already exist and will be skipped. Processing 1 new highlights...", FormatFound(p.found))
}

func TestIngest_AllDuplicatesDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	raw := "The first highlight text\n"
	_, err := f.engine.Ingest(ctx, 1, raw, nil)
	require.NoError(t, err)
	writes := f.store.writes
	calls := len(f.tagger.calls)

	res, err := f.engine.Ingest(ctx, 1, raw, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.New)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, writes, f.store.writes)
	assert.Equal(t, calls, len(f.tagger.calls))
}

func TestIngest_DuplicatesArePerChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	raw := "The shared highlight text\n"
	_, err := f.engine.Ingest(ctx, 1, raw, nil)
	require.NoError(t, err)

	res, err := f.engine.Ingest(ctx, 2, raw, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.New)
}

func TestIngest_BatchCadence(t *testing.T) {
	f := newFixture(t)
	p := &recordingProgress{}

	res, err := f.engine.Ingest(context.Background(), 1, clippings(60), p)
	require.NoError(t, err)

	assert.Equal(t, 60, res.Processed)
	assert.Equal(t, 60, res.Total)

	// Progress before items 10, 20, ... 50.
	assert.Equal(t, []string{
		"Processing highlight 10/60... (Total in collection: 10)",
		"Processing highlight 20/60... (Total in collection: 20)",
		"Processing highlight 30/60... (Total in collection: 30)",
		"Processing highlight 40/60... (Total in collection: 40)",
		"Processing highlight 50/60... (Total in collection: 50)",
	}, p.steps)

	// Checkpoints at 25 and 50, then the final save.
	assert.Equal(t, 3, f.store.writes)

	// Pacing after items 5, 10, ... 55.
	assert.Len(t, f.sleep.waits, 11)
	for _, w := range f.sleep.waits {
		assert.Equal(t, DefaultPaceDelay, w)
	}
}

func TestIngest_ProgressCountsExistingCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mgr.PutHighlight(1, "Already stored highlight", []string{"wisdom"})

	p := &recordingProgress{}
	_, err := f.engine.Ingest(ctx, 1, clippings(11), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Processing highlight 10/11... (Total in collection: 11)"}, p.steps)
}

func TestIngest_PanicTagsProcessingError(t *testing.T) {
	f := newFixture(t)
	bad := "Highlight number 001 is long enough"
	f.tagger.panics = map[string]bool{bad: true}

	res, err := f.engine.Ingest(context.Background(), 1, clippings(3), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Processed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Index)
	assert.Equal(t, 2, res.Succeeded())
	assert.Equal(t, []string{"untagged", "processing-error"}, f.mgr.Highlights(1)[bad])
	assert.Equal(t, []string{"wisdom"}, f.mgr.Highlights(1)["Highlight number 002 is long enough"])
}

func TestIngest_InterruptedSavesProgress(t *testing.T) {
	f := newFixture(t)
	f.engine.opts.Sleep = func(context.Context, time.Duration) error { return context.Canceled }

	res, err := f.engine.Ingest(context.Background(), 1, clippings(20), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, res)
	assert.Equal(t, 6, res.Processed)
	assert.Equal(t, 1, f.store.writes)
}

func TestFormatResult(t *testing.T) {
	r := &Result{Found: 5, Duplicates: 1, New: 4, Processed: 4, Failures: []Failure{{Index: 2}}, Total: 9}
	want := "✅ Processing complete!\n\n" +
		"📊 Successfully processed: 3 new highlights\n" +
		"⚠️ Failed to process: 1 highlights\n(These were marked as 'untagged' and saved anyway)\n\n" +
		"🔄 Skipped 1 duplicate highlights\n\n" +
		"📚 Total highlights in your collection: 9"
	assert.Equal(t, want, FormatResult(r))

	clean := &Result{Found: 2, New: 2, Processed: 2, Total: 2}
	assert.Equal(t, "✅ Processing complete!\n\n📊 Successfully processed: 2 new highlights\n📚 Total highlights in your collection: 2", FormatResult(clean))
}

func TestFormatFound_NoDuplicates(t *testing.T) {
	assert.Equal(t, "Found 4 new highlights. Analyzing and categorizing them now...", FormatFound(&Result{Found: 4, New: 4}))
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("a", 60)
	assert.Equal(t, strings.Repeat("a", 50)+"...", preview(long))
	assert.Equal(t, "short...", preview("short"))
}
