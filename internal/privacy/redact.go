package privacy

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// Email pattern
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// Credit/debit card - must have 4 groups
	creditCardRegex = regexp.MustCompile(`\b\d{4}[-\s]\d{4}[-\s]\d{4}[-\s]\d{4}\b`)

	// ABHA health ID: 14 digits grouped 2-4-4-4
	abhaRegex = regexp.MustCompile(`\b\d{2}-\d{4}-\d{4}-\d{4}\b`)

	// Aadhaar: 12 digits, first digit 2-9, optionally grouped 4-4-4
	aadhaarRegex = regexp.MustCompile(`\b[2-9]\d{3}[\s-]?\d{4}[\s-]?\d{4}\b`)

	// Indian mobile numbers, optional +91 prefix
	// Matches: 9876543210, 98765 43210, +91 98765-43210, +919876543210
	phoneRegex = regexp.MustCompile(`(\+91[-\s]?)?\b[6-9]\d{4}[-\s]?\d{5}\b`)

	// PAN card: five letters, four digits, one letter
	panRegex = regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`)

	// Medical record number patterns
	medicalIDRegex = regexp.MustCompile(`\b(MRN|Medical Record|Patient ID|UHID)[-:\s#]*[A-Z0-9]{6,}\b`)
)

// RedactSensitiveData removes PII from text
func RedactSensitiveData(text string) string {
	text = emailRegex.ReplaceAllString(text, "[EMAIL]")

	// Longer digit runs first so they are not half-matched as phones
	text = creditCardRegex.ReplaceAllString(text, "[CARD]")
	text = abhaRegex.ReplaceAllString(text, "[HEALTH_ID]")
	text = aadhaarRegex.ReplaceAllString(text, "[AADHAAR]")
	text = phoneRegex.ReplaceAllString(text, "[PHONE]")

	text = panRegex.ReplaceAllString(text, "[PAN]")
	text = medicalIDRegex.ReplaceAllString(text, "[MEDICAL_ID]")

	return text
}

// SanitizeForLogging prepares text for safe logging
func SanitizeForLogging(text string) string {
	redacted := RedactSensitiveData(text)

	// Truncate on a rune boundary; Telugu and Kannada are multi-byte
	if utf8.RuneCountInString(redacted) > 200 {
		runes := []rune(redacted)
		return string(runes[:197]) + "..."
	}

	return redacted
}

// SanitizeForAPI removes PII before sending to external APIs
func SanitizeForAPI(text string) string {
	return strings.TrimSpace(RedactSensitiveData(text))
}

// ContainsPII checks if text contains potential PII
func ContainsPII(text string) bool {
	return emailRegex.MatchString(text) ||
		creditCardRegex.MatchString(text) ||
		abhaRegex.MatchString(text) ||
		aadhaarRegex.MatchString(text) ||
		phoneRegex.MatchString(text) ||
		panRegex.MatchString(text) ||
		medicalIDRegex.MatchString(text)
}
