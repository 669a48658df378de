// Package blocks splits document text into bounded-size content blocks.
package blocks

import (
	"strings"
	"unicode/utf16"
)

// MaxLength is the per-block rich text limit of the document workspace.
const MaxLength = 2000

const paragraphSeparator = "\n\n"

// Block is one unit of published content. Len(Content) never exceeds the
// limit it was paginated with.
type Block struct {
	Content string
}

// Len returns the block length in UTF-16 code units, the unit the workspace
// API measures rich text in. Characters outside the Basic Multilingual Plane
// (most emoji) count twice.
func (b Block) Len() int {
	return textLen(b.Content)
}

func textLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// Paginate splits text into blocks of at most maxLen UTF-16 units,
// preferring paragraph boundaries. Paragraphs are newline-separated; blank
// ones are dropped. Consecutive paragraphs share a block, joined by a blank
// line, while they fit. A paragraph longer than maxLen is sliced at fixed
// positions into pieces of at most maxLen units, each its own block; a
// slice never splits a character, so with maxLen 1 a two-unit character
// still forms a block of its own. maxLen < 1 selects MaxLength.
func Paginate(text string, maxLen int) []Block {
	if maxLen < 1 {
		maxLen = MaxLength
	}
	sepLen := textLen(paragraphSeparator)

	var (
		out        []Block
		current    strings.Builder
		currentLen int
	)
	flush := func() {
		if currentLen == 0 {
			return
		}
		out = append(out, Block{Content: current.String()})
		current.Reset()
		currentLen = 0
	}

	for _, paragraph := range Paragraphs(text) {
		size := textLen(paragraph)
		if size > maxLen {
			flush()
			for _, piece := range slice(paragraph, maxLen) {
				out = append(out, Block{Content: piece})
			}
			continue
		}

		needed := size
		if currentLen > 0 {
			needed += sepLen
		}
		if currentLen+needed > maxLen {
			flush()
			needed = size
		}
		if currentLen > 0 {
			current.WriteString(paragraphSeparator)
		}
		current.WriteString(paragraph)
		currentLen += needed
	}
	flush()
	return out
}

// slice cuts s into consecutive pieces of at most maxLen UTF-16 units.
func slice(s string, maxLen int) []string {
	var (
		pieces []string
		start  int
		units  int
	)
	for i, r := range s {
		w := utf16.RuneLen(r)
		if units > 0 && units+w > maxLen {
			pieces = append(pieces, s[start:i])
			start, units = i, 0
		}
		units += w
	}
	if start < len(s) {
		pieces = append(pieces, s[start:])
	}
	return pieces
}

// Paragraphs returns the non-blank lines of text in order. Lines keep their
// own indentation.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// Contents returns the block contents in order.
func Contents(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Content
	}
	return out
}
