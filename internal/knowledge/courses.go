package knowledge

import (
	"strings"
)

// Course describes one catalog entry the assistant can answer about.
type Course struct {
	Code    string
	Name    string
	Summary string
}

var catalog = []Course{
	{
		Code:    "IS621",
		Name:    "Agile and DevSecOps",
		Summary: "Agile methodologies and DevSecOps practices for modern software development.",
	},
	{
		Code:    "IS622",
		Name:    "Cloud Computing and Container Architecture",
		Summary: "Cloud computing platforms and container technologies.",
	},
	{
		Code:    "IS623",
		Name:    "AI and Machine Learning",
		Summary: "Artificial intelligence concepts and machine learning techniques.",
	},
	{
		Code:    "IS624",
		Name:    "Big Data and Analytics",
		Summary: "Big data processing and analytics methodologies.",
	},
	{
		Code:    "IS625",
		Name:    "Software Quality Management",
		Summary: "Software quality assurance and testing methodologies.",
	},
}

// Lookup returns the catalog entry for a course code like "IS621".
func Lookup(code string) (Course, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range catalog {
		if c.Code == code {
			return c, true
		}
	}
	return Course{}, false
}

// All returns the full catalog in code order.
func All() []Course {
	out := make([]Course, len(catalog))
	copy(out, catalog)
	return out
}

// SystemPrompt builds the instruction block sent with every model request.
// The catalog is inlined so the backend answers from the same course list the
// extractor recognizes.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are an AI assistant for Master's Program students. ")
	b.WriteString("Provide helpful, accurate information about courses, assignments, and learning materials. ")
	b.WriteString("Keep responses concise and tailored to academic contexts. ")
	b.WriteString("When you don't know specific programme information, say so clearly rather than inventing it.\n\n")
	b.WriteString("Known courses:\n")
	for _, c := range catalog {
		b.WriteString("- ")
		b.WriteString(c.Code)
		b.WriteString(": ")
		b.WriteString(c.Name)
		b.WriteString("\n")
	}
	return b.String()
}
