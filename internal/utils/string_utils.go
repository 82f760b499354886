package utils

import (
	"strings"
)

// NormalizeEmail lowercases and trims an email so lookups and the unique
// index always see the same value.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailLocalPart returns the part before the @, used as a nickname fallback.
func EmailLocalPart(email string) string {
	return strings.Split(email, "@")[0]
}

func Capitalize(str string) string {
	if len(str) == 0 {
		return ""
	}
	return strings.ToUpper(string([]rune(str)[0])) + string([]rune(str)[1:])
}
