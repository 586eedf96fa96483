package ingest

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hurttlocker/nuggets/internal/highlight"
	"github.com/hurttlocker/nuggets/internal/retry"
	"github.com/hurttlocker/nuggets/internal/tagger"
)

// Tags stored for a highlight whose tagging failed.
var processingErrorTags = []string{"untagged", "processing-error"}

// Options tunes batch cadence. Zero values take the defaults.
type Options struct {
	ProgressEvery   int
	CheckpointEvery int
	PaceEvery       int
	PaceDelay       time.Duration
	Sleep           retry.Sleeper
}

// Engine runs ingestion for one chat at a time. Callers serialise runs
// per chat.
type Engine struct {
	coll   Collection
	tagger Tagger
	opts   Options
	logger *zap.Logger
}

// NewEngine builds an engine over a collection and tagger.
func NewEngine(coll Collection, t Tagger, opts Options, logger *zap.Logger) *Engine {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = DefaultCheckpointEvery
	}
	if opts.PaceEvery <= 0 {
		opts.PaceEvery = DefaultPaceEvery
	}
	if opts.PaceDelay <= 0 {
		opts.PaceDelay = DefaultPaceDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{coll: coll, tagger: t, opts: opts, logger: logger}
}

// Ingest parses raw, drops duplicates, tags and stores the rest.
// It returns ErrNoHighlights when nothing parses. A run with no new
// highlights returns a Result with New == 0 and does not write.
func (e *Engine) Ingest(ctx context.Context, chatID int64, raw string, progress Progress) (*Result, error) {
	if progress == nil {
		progress = ProgressFunc{}
	}
	log := e.logger.With(zap.Int64("chat_id", chatID))

	parsed := highlight.Parse(raw)
	if len(parsed) == 0 {
		return nil, ErrNoHighlights
	}

	res := &Result{Found: len(parsed)}
	seen := make(map[string]struct{}, len(parsed))
	fresh := make([]string, 0, len(parsed))
	for _, h := range parsed {
		if _, dup := seen[h]; dup || e.coll.HasHighlight(chatID, h) {
			res.Duplicates++
			continue
		}
		seen[h] = struct{}{}
		fresh = append(fresh, h)
	}
	res.New = len(fresh)
	progress.Found(res)

	if res.New == 0 {
		res.Total = e.coll.HighlightCount(chatID)
		log.Info("upload had no new highlights", zap.Int("found", res.Found))
		return res, nil
	}

	existing := e.coll.HighlightCount(chatID)
	log.Info("ingesting highlights",
		zap.Int("found", res.Found),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("new", res.New))

	for i, text := range fresh {
		if i > 0 && i%e.opts.ProgressEvery == 0 {
			progress.Step(i, res.New, existing+res.Processed)
		}

		tags, err := e.tagOne(ctx, text)
		if err != nil {
			log.Error("tagging highlight", zap.Int("index", i+1), zap.Error(err))
			res.Failures = append(res.Failures, Failure{Index: i + 1, Preview: preview(text)})
			tags = processingErrorTags
		}
		e.coll.PutHighlight(chatID, text, tags)
		res.Processed++

		if res.Processed%e.opts.CheckpointEvery == 0 {
			if err := e.coll.Save(ctx); err != nil {
				log.Error("checkpoint save", zap.Error(err))
			} else {
				log.Info("saved progress", zap.Int("processed", res.Processed), zap.Int("new", res.New))
			}
		}

		if i > 0 && i%e.opts.PaceEvery == 0 {
			if err := e.opts.Sleep(ctx, e.opts.PaceDelay); err != nil {
				res.Total = e.coll.HighlightCount(chatID)
				if serr := e.coll.Save(context.WithoutCancel(ctx)); serr != nil {
					log.Error("saving interrupted run", zap.Error(serr))
				}
				return res, fmt.Errorf("ingest interrupted after %d of %d: %w", res.Processed, res.New, err)
			}
		}
	}

	res.Total = e.coll.HighlightCount(chatID)
	if t, ok := e.tagger.(interface{ Stats() tagger.Stats }); ok {
		st := t.Stats()
		log.Debug("tagger stats",
			zap.Int64("local", st.Local),
			zap.Int64("remote", st.Remote),
			zap.Int64("degraded", st.Degraded))
	}
	if err := e.coll.Save(ctx); err != nil {
		return res, fmt.Errorf("saving collection: %w", err)
	}
	log.Info("ingest complete",
		zap.Int("processed", res.Processed),
		zap.Int("failed", res.Failed()),
		zap.Int("total", res.Total))
	return res, nil
}

// tagOne converts a panic in the tagger into an error so one bad
// highlight cannot abort the batch.
func (e *Engine) tagOne(ctx context.Context, text string) (tags []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tagger panic: %v", r)
		}
	}()
	tags = e.tagger.Tags(ctx, text)
	if len(tags) == 0 {
		e.logger.Warn("tagger returned no tags", zap.Int("len", len(text)))
		tags = []string{"untagged"}
	}
	return tags, nil
}

func preview(text string) string {
	const n = 50
	if utf8.RuneCountInString(text) <= n {
		return text + "..."
	}
	return string([]rune(text)[:n]) + "..."
}
