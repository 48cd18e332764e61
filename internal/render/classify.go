package render

import (
	"bytes"
)

// inlineMarkers are bytes that start markdown anywhere on a line:
// emphasis, inline code, links and images, table cells.
const inlineMarkers = "*`[|"

var (
	strikeMarker    = []byte("~~")
	underlineMarker = []byte("__")
	blankLine       = []byte("\n\n")
)

// hasStructure reports whether text contains markdown that changes how it
// is drawn. lineStart tells whether text begins at the start of a line.
func hasStructure(text []byte, lineStart bool) bool {
	if bytes.ContainsAny(text, inlineMarkers) ||
		bytes.Contains(text, strikeMarker) ||
		bytes.Contains(text, underlineMarker) {
		return true
	}

	start := 0
	if !lineStart {
		i := bytes.IndexByte(text, '\n')
		if i < 0 {
			return false
		}
		start = i + 1
	}
	for start < len(text) {
		end := bytes.IndexByte(text[start:], '\n')
		line := text[start:]
		if end >= 0 {
			line = text[start : start+end]
		}
		if isBlockLine(line) {
			return true
		}
		if end < 0 {
			break
		}
		start += end + 1
	}
	return false
}

// isBlockLine reports whether line starts a markdown block element.
func isBlockLine(line []byte) bool {
	line = trimIndent(line)
	if len(line) == 0 {
		return false
	}
	switch line[0] {
	case '#', '>':
		return true
	case '-', '+':
		return len(line) == 1 || line[1] == ' ' || bytes.HasPrefix(line, []byte("---"))
	case '=':
		return bytes.HasPrefix(line, []byte("==="))
	}
	return isOrderedItem(line)
}

// opensBlock reports whether line belongs to a construct that usually
// continues on the next line: list items, table rows, blockquotes.
func opensBlock(line []byte) bool {
	line = trimIndent(line)
	if len(line) == 0 {
		return false
	}
	switch line[0] {
	case '>', '|':
		return true
	case '-', '+', '*':
		return len(line) > 1 && line[1] == ' '
	}
	return isOrderedItem(line) || bytes.Count(line, []byte("|")) >= 2
}

// isOrderedItem matches "1. " and "1) ".
func isOrderedItem(line []byte) bool {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i+1 >= len(line) {
		return false
	}
	return (line[i] == '.' || line[i] == ')') && line[i+1] == ' '
}

// trimIndent drops up to three leading spaces; four or more is an
// indented code line and is returned unchanged.
func trimIndent(line []byte) []byte {
	n := 0
	for n < len(line) && n < 4 && line[n] == ' ' {
		n++
	}
	if n == 4 {
		return line
	}
	return line[n:]
}

// paragraphBoundary returns the length of the prefix of text that can be
// flushed as complete markdown, or -1 when there is none yet.
func paragraphBoundary(text []byte) int {
	cut := -1
	if i := bytes.LastIndex(text, blankLine); i >= 0 {
		cut = i + len(blankLine)
	}
	n := len(text)
	if n > 0 && text[n-1] == '\n' && !opensBlock(lastLine(text[:n-1])) {
		cut = n
	}
	return cut
}

// lastLine returns the text after the last newline.
func lastLine(text []byte) []byte {
	return text[bytes.LastIndexByte(text, '\n')+1:]
}

// trailingBackticks counts backticks at the end of text, up to two.
func trailingBackticks(text []byte) int {
	n := 0
	for n < 2 && n < len(text) && text[len(text)-1-n] == '`' {
		n++
	}
	return n
}

// closingFence finds the fence that closes the block at the start of b,
// searching from offset from, and returns the index just past it or -1.
func closingFence(b []byte, from int) int {
	from = max(from, len(FenceMarker))
	if from >= len(b) {
		return -1
	}
	i := bytes.Index(b[from:], fence)
	if i < 0 {
		return -1
	}
	return from + i + len(FenceMarker)
}

// normalizeFence puts the closing marker of a multi-line block on its own
// line so the renderer sees a well-formed fence.
func normalizeFence(block []byte) []byte {
	if !bytes.Contains(block, []byte("\n")) {
		return block
	}
	body := block[:len(block)-len(FenceMarker)]
	if bytes.HasSuffix(body, []byte("\n")) {
		return block
	}
	out := make([]byte, 0, len(block)+1)
	out = append(out, body...)
	out = append(out, '\n')
	return append(out, fence...)
}
