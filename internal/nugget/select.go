// Package nugget picks one highlight for display.
package nugget

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Guidance replies for the two empty cases.
const (
	NoHighlightsText = "You haven't uploaded any highlights yet! Use /upload to get started."
	NoMatchText      = "No highlights found for your selected topics. Try selecting more topics or uploading more highlights!"
)

// Candidates returns the highlight texts eligible under prefs, sorted.
// With no preferences every highlight is eligible; otherwise a highlight
// needs at least one tag in prefs.
func Candidates(highlights map[string][]string, prefs []string) []string {
	out := make([]string, 0, len(highlights))
	for text, tags := range highlights {
		if len(prefs) == 0 || lo.Some(tags, prefs) {
			out = append(out, text)
		}
	}
	sort.Strings(out)
	return out
}

// Select returns a rendered nugget or a guidance message. rng may be nil.
func Select(highlights map[string][]string, prefs []string, rng *rand.Rand) string {
	if len(highlights) == 0 {
		return NoHighlightsText
	}
	cands := Candidates(highlights, prefs)
	if len(cands) == 0 {
		return NoMatchText
	}

	var i int
	if rng != nil {
		i = rng.IntN(len(cands))
	} else {
		i = rand.IntN(len(cands))
	}
	text := cands[i]
	return Render(text, highlights[text])
}

// Render formats a highlight with its tags as hashtags on a trailing line.
func Render(text string, tags []string) string {
	return text + "\n\nTags: " + Hashtags(tags, " ")
}

// Hashtags prefixes each tag with # and joins them with sep.
func Hashtags(tags []string, sep string) string {
	return strings.Join(lo.Map(tags, func(t string, _ int) string { return "#" + t }), sep)
}
