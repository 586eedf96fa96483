// Package highlight segments exported reading-highlight text (Kindle
// "My Clippings.txt" and pasted variants of it) into discrete passages.
package highlight

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MinLength is the rune length a joined passage must exceed to be kept.
const MinLength = 10

// MetadataMarkers flag a line as export noise. Matching is a case-sensitive
// substring test.
var MetadataMarkers = []string{
	"==========",
	"- Your Highlight on page",
	"- Highlight Loc.",
	"- Note Loc.",
}

// ErrNotUTF8 is returned by DecodeText for uploads that are not valid UTF-8.
var ErrNotUTF8 = errors.New("document is not valid UTF-8 text")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse splits raw export text into highlight passages in source order.
//
// Consecutive non-separator lines accumulate into one passage. A separator is
// an empty line or any line containing a metadata marker. A flushed passage
// is kept only when it is non-empty, longer than MinLength, and not made up
// entirely of lines that each contain a marker.
func Parse(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(raw), "\n")

	var (
		out     []string
		current []string
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		if text, ok := accept(current); ok {
			out = append(out, text)
		}
		current = current[:0]
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || hasMarker(line) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return out
}

func accept(lines []string) (string, bool) {
	text := strings.TrimSpace(strings.Join(lines, " "))
	if text == "" {
		return "", false
	}
	allMarked := true
	for _, l := range lines {
		if !hasMarker(l) {
			allMarked = false
			break
		}
	}
	if allMarked {
		return "", false
	}
	if utf8.RuneCountInString(text) <= MinLength {
		return "", false
	}
	return text, true
}

func hasMarker(line string) bool {
	for _, m := range MetadataMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// IsTextDocument reports whether an uploaded file name is an accepted
// plain-text export.
func IsTextDocument(fileName string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(fileName)), ".txt")
}

// DecodeText converts uploaded bytes into text, dropping a UTF-8 byte order
// mark. Kindle writes one at the start of My Clippings.txt.
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", ErrNotUTF8
	}
	return string(data), nil
}
