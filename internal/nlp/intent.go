package nlp

import (
	"regexp"
)

// Intent is the closed set of message categories the orchestrator switches on.
type Intent string

const (
	IntentCourseInfo      Intent = "course_info"
	IntentAssignmentQuery Intent = "assignment_query"
	IntentMultiPart       Intent = "multi_part"
	IntentSmallTalk       Intent = "small_talk"
	IntentUnknown         Intent = "unknown"
)

// tieEpsilon is the score distance under which two intents are considered
// tied and the fixed priority order decides.
const tieEpsilon = 0.05

// Priority used to break ties between non-multi-part intents.
var intentPriority = []Intent{IntentAssignmentQuery, IntentCourseInfo, IntentSmallTalk, IntentUnknown}

var intentPatterns = map[Intent][]*regexp.Regexp{
	IntentCourseInfo: compileAll(
		`\bcourses?\b`, `\bclass(es)?\b`, `\bmodules?\b`, `\bsubjects?\b`,
		`\bIS\s?\d{3}\b`, `\btell me about\b`, `\binformation about\b`,
		`\bdetails on\b`, `\btextbooks?\b`, `\bsyllabus\b`, `\bmaterials?\b`,
	),
	IntentAssignmentQuery: compileAll(
		`\bassignments?\b`, `\bhomework\b`, `\bprojects?\b`, `\bdeadlines?\b`,
		`\bdue date\b`, `\bwhen is\b`, `\bsubmit\b`, `\bsubmissions?\b`,
		`\bexams?\b`, `\bgrades?\b`, `\bmarks?\b`,
	),
	IntentSmallTalk: compileAll(
		`\bhello\b`, `\bhi\b`, `\bhey\b`, `\bthanks\b`, `\bthank you\b`,
		`\bbye\b`, `\bgoodbye\b`, `\bgood (morning|afternoon|evening)\b`,
		`\bhow are you\b`,
	),
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+e))
	}
	return out
}

// Classify assigns one intent and a confidence in [0,1] to a message. The
// recent texts bias only the unknown case: a dangling course reference in the
// previous turn keeps short follow-ups in the course_info lane. Classification
// is side-effect-free.
func Classify(text string, recent []string) (Intent, float64) {
	scores := map[Intent]float64{}
	for intent, patterns := range intentPatterns {
		hits := 0
		for _, re := range patterns {
			hits += len(re.FindAllStringIndex(text, -1))
		}
		if hits > 0 {
			s := float64(hits) / float64(len(patterns))
			if s > 1 {
				s = 1
			}
			scores[intent] = s
		}
	}

	markers := QuestionMarkers(text)
	if markers >= 2 {
		s := 0.5 + 0.25*float64(markers-1)
		if s > 1 {
			s = 1
		}
		scores[IntentMultiPart] = s
	}

	best, bestScore := IntentUnknown, 0.0
	second := 0.0
	for intent, s := range scores {
		switch {
		case s > bestScore:
			second = bestScore
			best, bestScore = intent, s
		case s > second:
			second = s
		}
	}
	if bestScore == 0 {
		if len(recent) > 0 && courseRefRe.MatchString(recent[len(recent)-1]) {
			return IntentCourseInfo, 0.2
		}
		return IntentUnknown, 0.0
	}

	if bestScore-second <= tieEpsilon && second > 0 {
		if markers >= 2 {
			return IntentMultiPart, scores[IntentMultiPart]
		}
		for _, intent := range intentPriority {
			if s, ok := scores[intent]; ok && bestScore-s <= tieEpsilon {
				return intent, s
			}
		}
	}
	return best, bestScore
}

var courseRefRe = regexp.MustCompile(`(?i)\bIS\s?\d{3}\b|\bcourse\b`)
