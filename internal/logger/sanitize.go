package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Length caps for user controlled values written to logs.
const (
	MaxPathLength  = 500
	MaxTitleLength = 200
	MaxErrorLength = 1000
	MaxTextLength  = 2000
)

// SanitizeText strips control characters, repairs invalid UTF-8 and
// truncates to max runes. A non-positive max falls back to MaxTextLength.
func SanitizeText(s string, max int) string {
	if s == "" {
		return ""
	}
	if max <= 0 {
		max = MaxTextLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(min(len(s), max*utf8.UTFMax))
	n := 0
	for _, r := range s {
		if !unicode.IsPrint(r) && r != ' ' && r != '\t' {
			// newlines would let a task title forge extra log lines
			continue
		}
		if n == max {
			b.WriteString("...")
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// SanitizePath cleans a request path for logging.
func SanitizePath(path string) string {
	return SanitizeText(path, MaxPathLength)
}

// SanitizeError cleans an error message for logging.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeText(err.Error(), MaxErrorLength)
}

// Path is a sanitized "path" field.
func Path(path string) zap.Field {
	return zap.String("path", SanitizePath(path))
}

// Title is a sanitized "title" field for task titles and notification headlines.
func Title(title string) zap.Field {
	return zap.String("title", SanitizeText(title, MaxTitleLength))
}

// Cause is a sanitized "error" field. Use it instead of zap.Error when the
// message may echo request input.
func Cause(err error) zap.Field {
	return zap.String("error", SanitizeError(err))
}
