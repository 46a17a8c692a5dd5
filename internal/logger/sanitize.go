package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Byte limits applied to request-derived values before logging.
const (
	MaxPathLength    = 500
	MaxQueryLength   = 300
	MaxErrorLength   = 1000
	MaxDefaultLength = 2000
)

// SanitizePath prepares a URL path for logging.
func SanitizePath(path string) string { return SanitizeString(path, MaxPathLength) }

// SanitizeQuery prepares a raw query string for logging.
func SanitizeQuery(query string) string { return SanitizeString(query, MaxQueryLength) }

// SanitizeError prepares an error message for logging; nil gives "".
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorLength)
}

// SanitizeString drops invalid UTF-8 and non-printing characters (tabs
// excepted) so a value cannot forge extra log lines, then cuts it to limit
// bytes on a rune boundary with a "..." marker. limit <= 0 means
// MaxDefaultLength.
func SanitizeString(s string, limit int) string {
	if limit <= 0 {
		limit = MaxDefaultLength
	}
	clean := strings.Map(func(r rune) rune {
		if r == utf8.RuneError || !(unicode.IsPrint(r) || r == '\t') {
			return -1
		}
		return r
	}, s)
	if len(clean) <= limit {
		return clean
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(clean[cut]) {
		cut--
	}
	return clean[:cut] + "..."
}
