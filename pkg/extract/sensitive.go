package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/thecyberx/cyberx/pkg/defaults"
)

var commentKeywords = []string{
	"todo", "fixme", "hack", "bug", "password", "secret", "api",
	"key", "token", "debug", "test", "temp", "admin",
}

var inputKeywords = []string{"token", "csrf", "nonce", "secret", "key", "session", "auth"}

// SensitiveComment reports whether a comment mentions a keyword worth a
// closer look.
func SensitiveComment(text string) bool {
	return containsAny(strings.ToLower(text), commentKeywords)
}

// SensitiveInput reports whether a hidden input looks like it carries a
// token: a telling name, or a long value.
func SensitiveInput(name, value string) bool {
	return containsAny(strings.ToLower(name), inputKeywords) ||
		utf8.RuneCountInString(value) > defaults.SensitiveValueLen
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
