// Package textedit turns a pair of document revisions into LSP text edits.
package textedit

import (
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Minimal returns the single contiguous edit that turns before into after, or
// nil when both are equal. The common prefix and suffix are trimmed away, so
// interleaved changes collapse into one hunk spanning all of them.
func Minimal(before, after string) []protocol.TextEdit {
	start, end, newText, ok := Replacement(before, after)
	if !ok {
		return nil
	}
	return []protocol.TextEdit{{
		Range: protocol.Range{
			Start: PositionAt(before, start),
			End:   PositionAt(before, end),
		},
		NewText: newText,
	}}
}

// Replacement reports the byte range [start, end) of before that has to be
// replaced by newText to obtain after. ok is false when nothing changed.
func Replacement(before, after string) (start, end int, newText string, ok bool) {
	if before == after {
		return 0, 0, "", false
	}

	minLen := min(len(before), len(after))

	i := 0
	for i < minLen && before[i] == after[i] {
		i++
	}
	// Never cut through a multi-byte rune or a CRLF.
	for i > 0 && (!boundary(before, i) || !boundary(after, i)) {
		i--
	}

	j := 0
	for i+j < minLen && before[len(before)-j-1] == after[len(after)-j-1] {
		j++
	}
	for j > 0 && (!boundary(before, len(before)-j) || !boundary(after, len(after)-j)) {
		j--
	}

	return i, len(before) - j, after[i : len(after)-j], true
}

// boundary reports whether i splits neither a rune nor a "\r\n" pair.
func boundary(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	if i > 0 && s[i-1] == '\r' && s[i] == '\n' {
		return false
	}
	return utf8.RuneStart(s[i])
}
