package policy

import "regexp"

type redactionRule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// Rules run in order: cards before phones so a card number is not matched as
// a phone number, and matriculation numbers last so longer digit runs are
// already consumed.
var redactionRules = []redactionRule{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[REDACTED_PHONE]"},
	{regexp.MustCompile(`\b\d{8}\b`), "[REDACTED_STUDENT_ID]"},
}

// RedactPII masks email addresses, payment card numbers, phone numbers, and
// eight-digit matriculation numbers before a prompt leaves the service for
// the model backend. Stored conversation turns keep the original text; only
// the outbound prompt is masked.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, rule := range redactionRules {
		next := rule.pattern.ReplaceAllString(out, rule.placeholder)
		changed = changed || next != out
		out = next
	}
	return out, changed
}
