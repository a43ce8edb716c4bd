package nlp

import (
	"regexp"
	"sort"
	"strings"

	"github.com/minervabot/minerva/internal/knowledge"
)

// EntityType labels one recognized token class.
type EntityType string

const (
	EntityCourseCode EntityType = "course_code"
	EntityCourseName EntityType = "course_name"
	EntityDate       EntityType = "date"
	EntityTime       EntityType = "time"
	EntityEmail      EntityType = "email"
	EntityPercentage EntityType = "percentage"
	EntityNumber     EntityType = "number"
)

// Entity is one extracted token with its byte span in the source text.
type Entity struct {
	Type  EntityType `json:"type"`
	Value string     `json:"value"`
	Start int        `json:"start"`
	End   int        `json:"end"`
}

var entityPatterns = []struct {
	typ EntityType
	re  *regexp.Regexp
}{
	{EntityCourseCode, regexp.MustCompile(`(?i)\bIS\s?\d{3}\b`)},
	{EntityDate, regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`)},
	{EntityTime, regexp.MustCompile(`\b\d{1,2}:\d{2}(?:\s*[aApP][mM])?\b`)},
	{EntityEmail, regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)},
	{EntityPercentage, regexp.MustCompile(`\b\d{1,3}(?:\.\d+)?\s*%`)},
	{EntityNumber, regexp.MustCompile(`\b\d+\b`)},
}

// Extract pulls structured tokens out of raw text. It is pure and idempotent;
// overlapping candidates are resolved by preferring the longest match, then
// the leftmost one.
func Extract(text string) []Entity {
	var candidates []Entity
	for _, p := range entityPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			candidates = append(candidates, Entity{
				Type:  p.typ,
				Value: text[loc[0]:loc[1]],
				Start: loc[0],
				End:   loc[1],
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		li, lj := candidates[i].End-candidates[i].Start, candidates[j].End-candidates[j].Start
		if li != lj {
			return li > lj
		}
		return candidates[i].Start < candidates[j].Start
	})

	var picked []Entity
	for _, c := range candidates {
		if overlapsAny(c, picked) {
			continue
		}
		if c.Type == EntityCourseCode {
			c.Value = normalizeCourseCode(c.Value)
		}
		picked = append(picked, c)
	}

	sort.Slice(picked, func(i, j int) bool { return picked[i].Start < picked[j].Start })

	// Course codes resolve to catalog names as derived entities sharing the
	// same span, mirroring how the extractor feeds the prompt builder.
	var derived []Entity
	for _, e := range picked {
		if e.Type != EntityCourseCode {
			continue
		}
		if c, ok := knowledge.Lookup(e.Value); ok {
			derived = append(derived, Entity{Type: EntityCourseName, Value: c.Name, Start: e.Start, End: e.End})
		}
	}
	return append(picked, derived...)
}

func overlapsAny(c Entity, picked []Entity) bool {
	for _, p := range picked {
		if c.Start < p.End && p.Start < c.End {
			return true
		}
	}
	return false
}

func normalizeCourseCode(v string) string {
	v = strings.ToUpper(v)
	return strings.ReplaceAll(v, " ", "")
}
