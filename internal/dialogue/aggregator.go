package dialogue

import (
	"strings"
	"time"

	"github.com/minervabot/minerva/internal/nlp"
)

// Answer is the outcome of one sub-question dispatch.
type Answer struct {
	Ordinal int
	Text    string
	Latency time.Duration
	OK      bool
}

// AggregatedResponse is the single reply assembled from all sub-answers.
// Degraded means at least one answer was replaced by the apology stub.
type AggregatedResponse struct {
	Text     string
	Degraded bool
}

const (
	apologyStub    = "Sorry, I couldn't get an answer for that part right now."
	degradedNotice = "Note: some information may be incomplete."
)

// Aggregate merges answers strictly by ordinal, never by completion order.
// A failed answer is replaced by a stub for its ordinal so one failing
// sub-question never discards the others. A single sub-question passes
// through without stub bookkeeping.
func Aggregate(subs []nlp.SubQuestion, answers []Answer) AggregatedResponse {
	if len(subs) == 1 {
		for _, a := range answers {
			if a.Ordinal != 0 {
				continue
			}
			if a.OK {
				return AggregatedResponse{Text: a.Text}
			}
			return AggregatedResponse{Text: apologyStub, Degraded: true}
		}
		return AggregatedResponse{Text: apologyStub, Degraded: true}
	}

	byOrdinal := make(map[int]Answer, len(answers))
	for _, a := range answers {
		byOrdinal[a.Ordinal] = a
	}

	parts := make([]string, 0, len(subs))
	degraded := false
	for _, sub := range subs {
		a, ok := byOrdinal[sub.Ordinal]
		if !ok || !a.OK {
			parts = append(parts, apologyStub)
			degraded = true
			continue
		}
		parts = append(parts, strings.TrimSpace(a.Text))
	}

	text := strings.Join(parts, "\n\n")
	if degraded {
		text += "\n\n" + degradedNotice
	}
	return AggregatedResponse{Text: text, Degraded: degraded}
}
