package view

import (
	"fmt"
	"time"

	"parlor/internal/content"
	"parlor/internal/models"
)

// TimelineMessage is a message with everything needed to draw it.
type TimelineMessage struct {
	models.Message
	HTML          string `json:"html"`
	EmojiOnly     bool   `json:"emojiOnly"`
	ShowTimestamp bool   `json:"showTimestamp"`
	ShowAvatar    bool   `json:"showAvatar"`
	RelativeTime  string `json:"relativeTime"`
	DetailedTime  string `json:"detailedTime"`
}

type TimelineDay struct {
	Key      string            `json:"key"`
	Label    string            `json:"label"`
	Messages []TimelineMessage `json:"messages"`
}

// Timeline groups messages by day in loc and annotates each one. Timestamp
// and avatar decisions only look at neighbours within the same day.
func Timeline(messages []models.Message, now time.Time, loc *time.Location) ([]TimelineDay, error) {
	if loc == nil {
		loc = time.Local
	}

	groups := GroupByDay(messages, loc)
	days := make([]TimelineDay, 0, len(groups))
	for _, g := range groups {
		day := TimelineDay{
			Key:      g.Key,
			Label:    DateLabel(g.Date, now),
			Messages: make([]TimelineMessage, 0, len(g.Messages)),
		}

		for i, m := range g.Messages {
			var prev, next *models.Message
			if i > 0 {
				prev = &g.Messages[i-1]
			}
			if i < len(g.Messages)-1 {
				next = &g.Messages[i+1]
			}

			html, err := content.Render(m.Content)
			if err != nil {
				return nil, fmt.Errorf("failed to render message %s: %w", m.ID, err)
			}

			day.Messages = append(day.Messages, TimelineMessage{
				Message:       m,
				HTML:          html,
				EmojiOnly:     content.IsEmojiOnly(m.Content),
				ShowTimestamp: ShowTimestamp(m, prev),
				ShowAvatar:    ShowAvatar(m, next),
				RelativeTime:  FormatTimestamp(m.Timestamp, now),
				DetailedTime:  FormatDetailed(m.Timestamp.In(loc)),
			})
		}
		days = append(days, day)
	}
	return days, nil
}
