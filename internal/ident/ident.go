// Package ident generates identifiers for users, rooms and messages.
package ident

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const suffixLen = 9

var (
	now      = time.Now
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
)

// MessageID returns a new message identifier of the form msg_<millis>_<suffix>.
func MessageID() string {
	return withPrefix("msg")
}

// UserID returns a new user identifier of the form user_<millis>_<suffix>.
func UserID() string {
	return withPrefix("user")
}

// SystemMessageID returns an identifier for messages authored by the system sender.
func SystemMessageID() string {
	return withPrefix("sys")
}

// RandomRoomID is used for rooms whose name produces an empty slug.
func RandomRoomID() string {
	return withPrefix("room")
}

// RoomID derives a room identifier from its name: lowercased, runs of
// non-alphanumeric characters collapsed into a single hyphen, hyphens trimmed.
func RoomID(name string) string {
	slug := nonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

func withPrefix(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, now().UnixMilli(), suffix())
}

func suffix() string {
	// The leading hex digits of a v4 UUID are fully random.
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
}
