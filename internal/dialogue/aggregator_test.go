package dialogue

import (
	"strings"
	"testing"

	"github.com/minervabot/minerva/internal/nlp"
)

func subsOf(texts ...string) []nlp.SubQuestion {
	out := make([]nlp.SubQuestion, len(texts))
	for i, t := range texts {
		out[i] = nlp.SubQuestion{MessageID: "m1", Ordinal: i, Text: t}
	}
	return out
}

func TestAggregateOrdersByOrdinalNotCompletion(t *testing.T) {
	subs := subsOf("q0", "q1", "q2")
	// Answers arrive in completion order 2, 0, 1.
	answers := []Answer{
		{Ordinal: 2, Text: "answer two", OK: true},
		{Ordinal: 0, Text: "answer zero", OK: true},
		{Ordinal: 1, Text: "answer one", OK: true},
	}
	got := Aggregate(subs, answers)
	if got.Degraded {
		t.Fatalf("Degraded = true, want false")
	}
	i0 := strings.Index(got.Text, "answer zero")
	i1 := strings.Index(got.Text, "answer one")
	i2 := strings.Index(got.Text, "answer two")
	if i0 < 0 || i1 < 0 || i2 < 0 || !(i0 < i1 && i1 < i2) {
		t.Fatalf("answers out of ordinal order: %q", got.Text)
	}
}

func TestAggregateSubstitutesStubForFailure(t *testing.T) {
	subs := subsOf("q0", "q1", "q2")
	answers := []Answer{
		{Ordinal: 0, Text: "answer zero", OK: true},
		{Ordinal: 1, OK: false},
		{Ordinal: 2, Text: "answer two", OK: true},
	}
	got := Aggregate(subs, answers)
	if !got.Degraded {
		t.Fatalf("Degraded = false, want true")
	}
	parts := strings.Split(got.Text, "\n\n")
	if len(parts) != 4 {
		t.Fatalf("parts = %d, want 3 answers + notice: %q", len(parts), got.Text)
	}
	if parts[0] != "answer zero" || parts[1] != apologyStub || parts[2] != "answer two" {
		t.Fatalf("stub not in failed ordinal position: %q", got.Text)
	}
	if parts[3] != degradedNotice {
		t.Fatalf("missing degraded notice: %q", got.Text)
	}
}

func TestAggregateMissingAnswerCountsAsFailure(t *testing.T) {
	subs := subsOf("q0", "q1")
	answers := []Answer{{Ordinal: 0, Text: "only one", OK: true}}
	got := Aggregate(subs, answers)
	if !got.Degraded {
		t.Fatalf("Degraded = false, want true")
	}
	if !strings.Contains(got.Text, apologyStub) {
		t.Fatalf("missing stub for absent ordinal: %q", got.Text)
	}
}

func TestAggregateSinglePassThrough(t *testing.T) {
	subs := subsOf("only question")
	got := Aggregate(subs, []Answer{{Ordinal: 0, Text: "the answer", OK: true}})
	if got.Text != "the answer" || got.Degraded {
		t.Fatalf("single answer should pass through untouched: %+v", got)
	}
}

func TestAggregateSingleFailure(t *testing.T) {
	subs := subsOf("only question")
	got := Aggregate(subs, []Answer{{Ordinal: 0, OK: false}})
	if !got.Degraded || got.Text != apologyStub {
		t.Fatalf("single failure should degrade to stub: %+v", got)
	}
}
