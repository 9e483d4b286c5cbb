package symptoms

import (
	"regexp"
	"strings"

	"github.com/themobileprof/ayu-be/internal/phrases"
)

// Matcher answers common symptoms from the ordered phrasebook table
// without calling the remote model.
type Matcher struct {
	entries         []phrases.Symptom
	spaceNormalizer *regexp.Regexp
}

// NewMatcher creates a matcher over the phrasebook symptom table
func NewMatcher(book *phrases.Book) *Matcher {
	return &Matcher{
		entries:         book.Symptoms,
		spaceNormalizer: regexp.MustCompile(`\s+`),
	}
}

// Match returns the canned reply for the first table entry the message
// matches, in lang or English when lang has no translation.
func (m *Matcher) Match(message, lang string) (string, bool) {
	entry, ok := m.MatchEntry(message)
	if !ok {
		return "", false
	}
	return entry.Response.For(lang), true
}

// MatchEntry returns the first matching table entry.
func (m *Matcher) MatchEntry(message string) (phrases.Symptom, bool) {
	text := m.spaceNormalizer.ReplaceAllString(strings.ToLower(strings.TrimSpace(message)), " ")
	if text == "" {
		return phrases.Symptom{}, false
	}

	for _, entry := range m.entries {
		if matches(text, entry) {
			return entry, true
		}
	}
	return phrases.Symptom{}, false
}

// Entries returns a copy of the table in match order.
func (m *Matcher) Entries() []phrases.Symptom {
	out := make([]phrases.Symptom, len(m.entries))
	copy(out, m.entries)
	return out
}

func matches(text string, entry phrases.Symptom) bool {
	for _, kw := range entry.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	for _, group := range entry.AllOf {
		if len(group) > 0 && containsAll(text, group) {
			return true
		}
	}
	return false
}

func containsAll(text string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}
