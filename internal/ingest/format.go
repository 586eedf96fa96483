package ingest

import (
	"fmt"
	"strings"
)

// FormatFound is the first reply after parsing.
func FormatFound(r *Result) string {
	if r.Duplicates > 0 {
		return fmt.Sprintf("Found %d highlights. %d already exist and will be skipped. Processing %d new highlights...",
			r.Found, r.Duplicates, r.New)
	}
	return fmt.Sprintf("Found %d new highlights. Analyzing and categorizing them now...", r.New)
}

// FormatStep is the periodic progress line.
func FormatStep(i, total, inCollection int) string {
	return fmt.Sprintf("Processing highlight %d/%d... (Total in collection: %d)", i, total, inCollection)
}

// AllDuplicatesText is sent when every parsed highlight was already stored.
const AllDuplicatesText = "All highlights already exist in your collection. No new processing needed!"

// FormatResult is the completion summary.
func FormatResult(r *Result) string {
	var b strings.Builder
	b.WriteString("✅ Processing complete!\n\n")
	fmt.Fprintf(&b, "📊 Successfully processed: %d new highlights\n", r.Succeeded())
	if n := r.Failed(); n > 0 {
		fmt.Fprintf(&b, "⚠️ Failed to process: %d highlights\n(These were marked as 'untagged' and saved anyway)\n\n", n)
	}
	if r.Duplicates > 0 {
		fmt.Fprintf(&b, "🔄 Skipped %d duplicate highlights\n\n", r.Duplicates)
	}
	fmt.Fprintf(&b, "📚 Total highlights in your collection: %d", r.Total)
	return b.String()
}
