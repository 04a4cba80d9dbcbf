package content

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"parlor/internal/models"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	MinNameLength    = 2
	MaxNameLength    = 50
	MaxMessageLength = 2000
)

var (
	policy   = bluemonday.UGCPolicy()
	markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))
)

// Sanitize removes unsafe HTML from the input string using the UGC policy.
// Stored content is kept raw; Sanitize runs on the way out to HTML views.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// Render converts message markdown into sanitized HTML.
func Render(input string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(input), &buf); err != nil {
		return "", err
	}
	return Sanitize(buf.String()), nil
}

// ValidateName checks a user or room name. The length is counted in
// characters after trimming surrounding whitespace. kind is used in the message,
// e.g. "Room name".
func ValidateName(kind, name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinNameLength || n > MaxNameLength {
		return models.Errorf(models.ErrValidation, "%s must be between %d and %d characters", kind, MinNameLength, MaxNameLength)
	}
	return nil
}

// ValidateMessage checks message content after trimming.
func ValidateMessage(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	switch {
	case n == 0:
		return models.Errorf(models.ErrValidation, "Message content cannot be empty")
	case n > MaxMessageLength:
		return models.Errorf(models.ErrValidation, "Message content too long (max %d characters)", MaxMessageLength)
	}
	return nil
}

// IsEmojiOnly reports whether content consists solely of emoji and whitespace.
// Such messages are rendered enlarged.
func IsEmojiOnly(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}

	runes := []rune(trimmed)
	pictographs := 0
	for i, r := range runes {
		switch {
		case unicode.IsSpace(r), isEmojiModifier(r):
		case isPictograph(r), isKeycap(runes[i:]):
			pictographs++
		default:
			return false
		}
	}
	return pictographs > 0
}

// isKeycap reports whether rs starts with a keycap sequence such as "1️⃣":
// a digit, '#' or '*', an optional U+FE0F and U+20E3.
func isKeycap(rs []rune) bool {
	if len(rs) < 2 || !strings.ContainsRune("0123456789#*", rs[0]) {
		return false
	}
	if rs[1] == 0xFE0F {
		return len(rs) > 2 && rs[2] == 0x20E3
	}
	return rs[1] == 0x20E3
}

func isEmojiModifier(r rune) bool {
	switch {
	case r == 0x200D, // zero width joiner
		r == 0xFE0E, r == 0xFE0F, // variation selectors
		r == 0x20E3,                     // combining keycap
		r >= 0xE0020 && r <= 0xE007F: // tag sequences
		return true
	}
	return false
}

func isPictograph(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF,
		r >= 0x2600 && r <= 0x27BF,
		r >= 0x2300 && r <= 0x23FF,
		r >= 0x2B00 && r <= 0x2BFF,
		r >= 0x2190 && r <= 0x21FF,
		r == 0x00A9, r == 0x00AE, r == 0x203C, r == 0x2049,
		r == 0x2122, r == 0x2139, r == 0x3030, r == 0x303D,
		r == 0x3297, r == 0x3299:
		return true
	}
	return false
}
