package textedit

import (
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// OffsetAt returns the byte offset of an LSP position in text. Lines end at
// "\n", "\r\n" or a lone "\r". Characters are counted in UTF-16 code units.
// A line past the end maps to len(text) and a character past the end of its
// line clamps to the line end.
func OffsetAt(text string, pos protocol.Position) int {
	offset := 0
	for range pos.Line {
		next := nextLine(text, offset)
		if next < 0 {
			return len(text)
		}
		offset = next
	}

	end := len(text)
	if i := strings.IndexAny(text[offset:], "\r\n"); i >= 0 {
		end = offset + i
	}

	var units uint32
	for _, r := range text[offset:end] {
		width := uint32(1)
		if r > 0xFFFF {
			width = 2
		}
		if units+width > pos.Character {
			break
		}
		units += width
		offset += utf8.RuneLen(r)
	}
	return offset
}

// nextLine returns the offset of the line following the one containing
// from, or -1 on the last line.
func nextLine(text string, from int) int {
	i := strings.IndexAny(text[from:], "\r\n")
	if i < 0 {
		return -1
	}
	i += from
	if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
		return i + 2
	}
	return i + 1
}

// PositionAt converts a byte offset in text to an LSP position. An offset
// between the two bytes of "\r\n" maps to the end of that line.
func PositionAt(text string, offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}

	var line, character uint32
	for i := 0; i < offset; {
		r, size := utf8.DecodeRuneInString(text[i:])
		if i+size > offset {
			break
		}
		i += size

		switch {
		case r == '\r' && i < len(text) && text[i] == '\n':
			if i == offset {
				return protocol.Position{Line: line, Character: character}
			}
			i++
			line++
			character = 0
		case r == '\n' || r == '\r':
			line++
			character = 0
		case r > 0xFFFF:
			character += 2
		default:
			character++
		}
	}
	return protocol.Position{Line: line, Character: character}
}

// Apply splices a single edit into text.
func Apply(text string, edit protocol.TextEdit) string {
	start := OffsetAt(text, edit.Range.Start)
	end := OffsetAt(text, edit.Range.End)
	if end < start {
		start, end = end, start
	}
	return text[:start] + edit.NewText + text[end:]
}

// ApplyAll applies edits that were all computed against text. Edits are
// applied back to front so earlier offsets stay valid.
func ApplyAll(text string, edits []protocol.TextEdit) string {
	type span struct {
		start, end int
		newText    string
	}
	spans := make([]span, len(edits))
	for i, e := range edits {
		spans[i] = span{OffsetAt(text, e.Range.Start), OffsetAt(text, e.Range.End), e.NewText}
	}
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		text = text[:s.start] + s.newText + text[s.end:]
	}
	return text
}
