package ingest

import (
	"regexp"
	"strings"
)

var (
	urlPattern   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	emailPattern = regexp.MustCompile(`\b\S+@\S+\.\S+\b`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// kazakhLetters are the Cyrillic letters specific to Kazakh
const kazakhLetters = "әғқңөұүһӘҒҚҢӨҰҮҺ"

// NormalizeText derives the normalized text form used for analysis:
// lower-cased, with URL and e-mail substrings removed and whitespace
// collapsed.
func NormalizeText(text string) string {
	normalized := strings.ToLower(text)
	normalized = urlPattern.ReplaceAllString(normalized, " ")
	normalized = emailPattern.ReplaceAllString(normalized, " ")
	normalized = spacePattern.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// DetectLanguage tags text with a lightweight script heuristic. Kazakh-specific
// letters force "kk"; a Cyrillic and Latin mixture yields "mixed"; pure
// Cyrillic yields "ru"; anything else "unk".
func DetectLanguage(text string) string {
	hasCyrillic := false
	hasLatin := false

	for _, r := range text {
		switch {
		case strings.ContainsRune(kazakhLetters, r):
			return "kk"
		case r >= 0x0400 && r <= 0x04FF:
			hasCyrillic = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLatin = true
		}
	}

	switch {
	case hasCyrillic && hasLatin:
		return "mixed"
	case hasCyrillic:
		return "ru"
	default:
		return "unk"
	}
}
