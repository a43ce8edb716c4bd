package nlp

import (
	"regexp"
	"strings"
)

// SubQuestion is one independently answerable span of an inbound message.
// Ordinals are 0-based, contiguous, and follow the original left-to-right
// order; decomposition is deterministic for identical input.
type SubQuestion struct {
	MessageID string `json:"message_id"`
	Ordinal   int    `json:"ordinal"`
	Text      string `json:"text"`
}

var (
	// Enumerated markers like "1)" or "2." at a word boundary.
	enumMarkerRe = regexp.MustCompile(`(?:^|\s)\d+[).]\s+`)
	// A coordinating conjunction starting a fresh interrogative clause.
	conjBoundaryRe = regexp.MustCompile(`(?i)\b(?:and|or|but|also|plus)\s+(?:what|when|where|who|whom|whose|why|how|which|does|do|did|is|are|was|were|can|could|will|would|should)\b`)
)

type boundary struct {
	start, end int // span of the boundary token, excluded from segments
}

// detectBoundaries returns the spans of all boundary tokens: enumerated
// markers, conjunctions that introduce a new interrogative clause, and
// non-terminal question marks.
func detectBoundaries(text string) []boundary {
	var bs []boundary
	for _, loc := range enumMarkerRe.FindAllStringIndex(text, -1) {
		bs = append(bs, boundary{loc[0], loc[1]})
	}
	for _, loc := range conjBoundaryRe.FindAllStringIndex(text, -1) {
		// Only the conjunction word is a boundary token; the interrogative
		// cue stays with the following segment.
		conj := text[loc[0]:loc[1]]
		cut := strings.IndexFunc(conj, func(r rune) bool { return r == ' ' || r == '\t' })
		if cut < 0 {
			continue
		}
		bs = append(bs, boundary{loc[0], loc[0] + cut + 1})
	}
	trimmed := strings.TrimRight(text, " \t\n?")
	for i, r := range text {
		if r == '?' && i < len(trimmed) {
			bs = append(bs, boundary{i, i + 1})
		}
	}
	return mergeBoundaries(bs)
}

func mergeBoundaries(bs []boundary) []boundary {
	if len(bs) < 2 {
		return bs
	}
	sortBoundaries(bs)
	out := bs[:1]
	for _, b := range bs[1:] {
		last := &out[len(out)-1]
		if b.start < last.end {
			if b.end > last.end {
				last.end = b.end
			}
			continue
		}
		out = append(out, b)
	}
	return out
}

func sortBoundaries(bs []boundary) {
	for i := 1; i < len(bs); i++ {
		for j := i; j > 0 && bs[j].start < bs[j-1].start; j-- {
			bs[j], bs[j-1] = bs[j-1], bs[j]
		}
	}
}

// segments splits text at boundary tokens, trims each piece, and drops the
// empty ones. The returned strings are spans of the input minus boundary
// tokens and surrounding whitespace.
func segments(text string) []string {
	bs := detectBoundaries(text)
	var out []string
	prev := 0
	for _, b := range bs {
		if s := strings.TrimSpace(text[prev:b.start]); s != "" {
			out = append(out, s)
		}
		prev = b.end
	}
	if s := strings.TrimSpace(text[prev:]); s != "" {
		out = append(out, s)
	}
	return out
}

// QuestionMarkers reports how many independent question spans the text
// carries. Values >= 2 indicate a compound message.
func QuestionMarkers(text string) int {
	return len(segments(text))
}

// IsCompound reports whether the text should be decomposed before dispatch.
func IsCompound(text string) bool {
	return QuestionMarkers(text) >= 2
}

// Decompose splits a message into ordered sub-questions. A single-clause
// input yields exactly one SubQuestion with ordinal 0 whose text equals the
// trimmed input, so every message flows through the same fan-out path.
func Decompose(messageID, text string) []SubQuestion {
	segs := segments(text)
	if len(segs) <= 1 {
		// Identity case, and the fallback for unparseable input: keep the
		// whole trimmed span (including any trailing "?").
		return []SubQuestion{{MessageID: messageID, Ordinal: 0, Text: strings.TrimSpace(text)}}
	}
	out := make([]SubQuestion, 0, len(segs))
	for i, s := range segs {
		out = append(out, SubQuestion{MessageID: messageID, Ordinal: i, Text: s})
	}
	return out
}
