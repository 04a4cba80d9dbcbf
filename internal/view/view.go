// Package view derives display data from messages, users and timestamps.
// Nothing here holds state.
package view

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"parlor/internal/models"
)

// TimestampGap is the pause after which a message gets its own timestamp
// header even when the sender did not change.
const TimestampGap = 5 * time.Minute

const (
	dayKeyLayout   = "2006-01-02"
	shortDate      = "Jan 2"
	shortDateYear  = "Jan 2, 2006"
	detailedLayout = "Mon, Jan 2, 3:04 PM"
	labelDate      = "Monday, January 2"
	labelDateYear  = "Monday, January 2, 2006"
	lastSeenDate   = "1/2/2006"
)

// DayGroup holds the messages of one local calendar day.
type DayGroup struct {
	Key      string           `json:"key"`
	Date     time.Time        `json:"date"`
	Messages []models.Message `json:"messages"`
}

// GroupByDay splits messages by calendar day in loc. Groups are ordered
// chronologically and keep the input order of their messages.
func GroupByDay(messages []models.Message, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}

	groups := []DayGroup{}
	index := make(map[string]int)
	for _, m := range messages {
		local := m.Timestamp.In(loc)
		key := local.Format(dayKeyLayout)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Key: key, Date: startOfDay(local)})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}

	// Keys sort chronologically because of their layout.
	slices.SortStableFunc(groups, func(a, b DayGroup) int { return strings.Compare(a.Key, b.Key) })
	return groups
}

// ShowTimestamp reports whether cur starts a new block: there is no previous
// message, the sender changed, or more than TimestampGap has passed.
func ShowTimestamp(cur models.Message, prev *models.Message) bool {
	if prev == nil {
		return true
	}
	return cur.Timestamp.Sub(prev.Timestamp) > TimestampGap || cur.SenderID != prev.SenderID
}

// ShowAvatar reports whether cur ends a run of messages from one sender.
func ShowAvatar(cur models.Message, next *models.Message) bool {
	return next == nil || cur.SenderID != next.SenderID
}

// FormatTimestamp renders t relative to now: "just now", "5m ago", "3h ago",
// "2d ago", then a short date.
func FormatTimestamp(t, now time.Time) string {
	if rel, ok := relative(t, now); ok {
		if rel == "" {
			return "just now"
		}
		return rel + " ago"
	}
	if t.Year() != now.Year() {
		return t.Format(shortDateYear)
	}
	return t.Format(shortDate)
}

func FormatDetailed(t time.Time) string {
	return t.Format(detailedLayout)
}

// FormatLastSeen describes when a user was last active.
func FormatLastSeen(t, now time.Time) string {
	if rel, ok := relative(t, now); ok {
		if rel == "" {
			return "Active now"
		}
		return "Active " + rel + " ago"
	}
	return "Last seen " + t.Format(lastSeenDate)
}

// relative returns "Nm", "Nh" or "Nd" for gaps under a week. An empty string
// means less than a minute.
func relative(t, now time.Time) (string, bool) {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "", true
	case diff < time.Hour:
		return fmt.Sprintf("%dm", int(diff/time.Minute)), true
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh", int(diff/time.Hour)), true
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(diff/(24*time.Hour))), true
	}
	return "", false
}

// DateLabel names a day header: "Today", "Yesterday" or the full date.
// day and now are compared as calendar dates in day's location.
func DateLabel(day, now time.Time) string {
	now = now.In(day.Location())
	today := startOfDay(now)
	d := startOfDay(day)

	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case d.Year() != now.Year():
		return d.Format(labelDateYear)
	}
	return d.Format(labelDate)
}

func StatusText(status models.UserStatus) string {
	switch status {
	case models.UserStatusOnline:
		return "Online"
	case models.UserStatusAway:
		return "Away"
	case models.UserStatusOffline:
		return "Offline"
	}
	return "Unknown"
}

// SearchMessages keeps messages whose content or sender name contains query,
// ignoring case. A blank query returns the input unchanged.
func SearchMessages(messages []models.Message, query string) []models.Message {
	if strings.TrimSpace(query) == "" {
		return messages
	}

	q := strings.ToLower(query)
	result := []models.Message{}
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m.Content), q) || strings.Contains(strings.ToLower(m.SenderName), q) {
			result = append(result, m)
		}
	}
	return result
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
