package classifier

import (
	"regexp"
	"strings"

	"github.com/themobileprof/ayu-be/internal/phrases"
)

// Classifier performs keyword-based emergency detection and coarse
// categorisation of user messages.
type Classifier struct {
	urgentKeywords  []string
	symptomWords    []string
	emergencyText   phrases.Localized
	spaceNormalizer *regexp.Regexp // Pre-compiled for performance
}

// NewClassifier creates a classifier from the phrasebook tables
func NewClassifier(book *phrases.Book) *Classifier {
	return &Classifier{
		urgentKeywords:  book.Emergency.Keywords,
		symptomWords:    book.Fallback.SymptomWords,
		emergencyText:   book.Emergency.Response,
		spaceNormalizer: regexp.MustCompile(`\s+`),
	}
}

// IsUrgent reports whether the message contains any emergency keyword.
// Matching is a case-insensitive substring test.
func (c *Classifier) IsUrgent(message string) bool {
	return containsAny(c.normalizeText(message), c.urgentKeywords)
}

// EmergencyResponse returns the fixed emergency reply for lang.
func (c *Classifier) EmergencyResponse(lang string) string {
	return c.emergencyText.For(lang)
}

// Category returns the fallback pool a message belongs to.
func (c *Classifier) Category(message string) string {
	if containsAny(c.normalizeText(message), c.symptomWords) {
		return phrases.CategorySymptoms
	}
	return phrases.CategoryGeneral
}

// normalizeText lowercases input and collapses whitespace runs
func (c *Classifier) normalizeText(input string) string {
	text := strings.ToLower(strings.TrimSpace(input))
	return c.spaceNormalizer.ReplaceAllString(text, " ")
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
