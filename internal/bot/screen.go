package bot

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxInputLength is the longest text accepted from a user, in characters.
const MaxInputLength = 300

// suspiciousPatterns are lowercased fragments of markup and SQL that never
// appear in legitimate input.
var suspiciousPatterns = []string{
	"<", ">", "--", ";",
	"drop", "select", "insert", "update", "delete",
	"xp_", "exec", "union", "%", "$",
}

// Acceptable reports whether text may be passed to the conversation.
func Acceptable(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > MaxInputLength {
		return false
	}

	lower := strings.ToLower(text)
	for _, p := range suspiciousPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}

	return strings.IndexFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
