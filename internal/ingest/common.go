// Package ingest turns an uploaded clippings export into tagged highlights
// in a chat's collection. Highlights are processed sequentially with
// periodic progress reports, checkpoint saves and pacing pauses.
package ingest

import (
	"context"
	"errors"
	"time"
)

// ErrNoHighlights means the input parsed to zero highlights.
var ErrNoHighlights = errors.New("no highlights found in input")

// Batch cadence defaults.
const (
	DefaultProgressEvery   = 10
	DefaultCheckpointEvery = 25
	DefaultPaceEvery       = 5
	DefaultPaceDelay       = 500 * time.Millisecond
)

// Tagger assigns tags to one highlight.
type Tagger interface {
	Tags(ctx context.Context, text string) []string
}

// Collection is the slice of the state manager the engine needs.
type Collection interface {
	HasHighlight(chatID int64, text string) bool
	PutHighlight(chatID int64, text string, tags []string)
	HighlightCount(chatID int64) int
	Save(ctx context.Context) error
}

// Progress receives user-facing updates during a run.
type Progress interface {
	// Found is called once after parsing and duplicate detection.
	Found(r *Result)
	// Step is called before processing item i (every ProgressEvery items).
	Step(i, total, inCollection int)
}

// ProgressFunc adapts plain funcs to Progress; nil fields are skipped.
type ProgressFunc struct {
	OnFound func(r *Result)
	OnStep  func(i, total, inCollection int)
}

func (p ProgressFunc) Found(r *Result) {
	if p.OnFound != nil {
		p.OnFound(r)
	}
}

func (p ProgressFunc) Step(i, total, inCollection int) {
	if p.OnStep != nil {
		p.OnStep(i, total, inCollection)
	}
}

// Failure records one highlight whose tagging failed.
type Failure struct {
	Index   int // 1-based position among new highlights
	Preview string
}

// Result summarises an ingestion run.
type Result struct {
	Found      int // highlights parsed from the input
	Duplicates int // already stored or repeated within the input
	New        int // highlights queued for tagging
	Processed  int
	Failures   []Failure
	Total      int // collection size after the run
}

// Succeeded is the number of new highlights tagged without error.
func (r *Result) Succeeded() int {
	return r.Processed - len(r.Failures)
}

// Failed is the number of highlights stored with the error tag.
func (r *Result) Failed() int {
	return len(r.Failures)
}
