// Package tagger assigns topical tags to highlights.
//
// Tagging is two-tier: a local keyword table covers the common concepts, and
// a hosted zero-shot classifier is consulted only when no keyword matches.
// The result is always a non-empty list of unique lowercase tags.
package tagger

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Marker tags for degraded results.
const (
	TagUntagged        = "untagged"
	TagAPIError        = "api-error"
	TagAPIFormatError  = "api-format-error"
	TagProcessingError = "processing-error"
)

// Remote classifies text the local tier could not place.
type Remote interface {
	Classify(ctx context.Context, text string) []string
}

// Stats counts how tags were produced.
type Stats struct {
	Local    int64 `json:"local"`
	Remote   int64 `json:"remote"`
	Degraded int64 `json:"degraded"`
}

// Tagger combines both tiers. Safe for concurrent use.
type Tagger struct {
	remote Remote
	logger *zap.Logger

	local    atomic.Int64
	remoteN  atomic.Int64
	degraded atomic.Int64
}

// New returns a Tagger. A nil remote makes unmatched text "untagged".
func New(remote Remote, logger *zap.Logger) *Tagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tagger{remote: remote, logger: logger}
}

// Tags classifies text.
func (t *Tagger) Tags(ctx context.Context, text string) []string {
	if tags := MatchKeywords(text); len(tags) > 0 {
		t.local.Add(1)
		return tags
	}

	if t.remote == nil {
		t.degraded.Add(1)
		return []string{TagUntagged}
	}

	t.remoteN.Add(1)
	tags := normalize(t.remote.Classify(ctx, text))
	if lo.Contains(tags, TagUntagged) {
		t.degraded.Add(1)
	}
	t.logger.Debug("remote tags", zap.Strings("tags", tags))
	return tags
}

// Stats returns a snapshot of the counters.
func (t *Tagger) Stats() Stats {
	return Stats{
		Local:    t.local.Load(),
		Remote:   t.remoteN.Load(),
		Degraded: t.degraded.Load(),
	}
}

// normalize lowercases, trims and dedupes tags, keeping first-seen order.
// An empty result becomes ["untagged"].
func normalize(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			out = append(out, tag)
		}
	}
	out = lo.Uniq(out)
	if len(out) == 0 {
		return []string{TagUntagged}
	}
	return out
}
