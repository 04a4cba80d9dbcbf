// Package stubs holds the demo data the store is seeded with.
package stubs

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"time"

	"parlor/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the initial state handed to the store.
type Seed struct {
	Users    []models.User
	Rooms    []Room
	Messages map[string][]models.Message
}

// Room is a seeded room. Participants are user IDs; Unread holds initial
// per-user unread counters.
type Room struct {
	ID           string
	Name         string
	Description  string
	Type         models.RoomType
	Avatar       string
	CreatedAt    time.Time
	CreatorID    string
	Participants []string
	Unread       map[string]int
}

type document struct {
	Users    []userDoc               `yaml:"users"`
	Rooms    []roomDoc               `yaml:"rooms"`
	Messages map[string][]messageDoc `yaml:"messages"`
}

type userDoc struct {
	models.User `yaml:",inline"`
	SeenAgo     string `yaml:"seenAgo"`
}

type roomDoc struct {
	ID           string          `yaml:"id"`
	Name         string          `yaml:"name"`
	Description  string          `yaml:"description"`
	Type         models.RoomType `yaml:"type"`
	Avatar       string          `yaml:"avatar"`
	CreatedAt    time.Time       `yaml:"createdAt"`
	CreatorID    string          `yaml:"creatorId"`
	Participants []string        `yaml:"participants"`
	Unread       map[string]int  `yaml:"unread"`
}

type messageDoc struct {
	ID        string             `yaml:"id"`
	Sender    string             `yaml:"sender"`
	Ago       string             `yaml:"ago"`
	Content   string             `yaml:"content"`
	Type      models.MessageType `yaml:"type"`
	Reactions []reactionDoc      `yaml:"reactions"`
}

type reactionDoc struct {
	Emoji  string `yaml:"emoji"`
	UserID string `yaml:"userId"`
}

// Default returns the built-in demo data with offsets resolved against now.
func Default(now time.Time) (*Seed, error) {
	return Parse(defaultSeed, now)
}

// Load reads a seed file in the same format as the built-in one.
func Load(path string, now time.Time) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data, now)
}

// Parse decodes a YAML seed document. Sender names, avatars and reaction
// user names are filled in from the users section, so every referenced user
// must be declared there.
func Parse(data []byte, now time.Time) (*Seed, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}

	seed := &Seed{Messages: make(map[string][]models.Message)}
	users := make(map[string]models.User, len(doc.Users))

	for _, u := range doc.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("user %q has no id", u.Name)
		}
		if _, dup := users[u.ID]; dup {
			return nil, fmt.Errorf("duplicate user id %q", u.ID)
		}
		if u.Status == "" {
			u.Status = models.UserStatusOnline
		}
		if !u.Status.Valid() {
			return nil, fmt.Errorf("user %s: invalid status %q", u.ID, u.Status)
		}
		ago, err := parseAgo(u.SeenAgo)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.ID, err)
		}
		user := u.User
		user.LastSeen = now.Add(-ago)
		users[user.ID] = user
		seed.Users = append(seed.Users, user)
	}

	rooms := make(map[string]bool, len(doc.Rooms))
	for _, r := range doc.Rooms {
		if r.ID == "" {
			return nil, fmt.Errorf("room %q has no id", r.Name)
		}
		if rooms[r.ID] {
			return nil, fmt.Errorf("duplicate room id %q", r.ID)
		}
		if r.Type == "" {
			r.Type = models.RoomTypePublic
		}
		if !r.Type.Valid() {
			return nil, fmt.Errorf("room %s: invalid type %q", r.ID, r.Type)
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		rooms[r.ID] = true
		seed.Rooms = append(seed.Rooms, Room(r))
	}

	for roomID, docs := range doc.Messages {
		if !rooms[roomID] {
			return nil, fmt.Errorf("messages for unknown room %q", roomID)
		}
		messages := make([]models.Message, 0, len(docs))
		for _, m := range docs {
			msg, err := buildMessage(m, roomID, users, now)
			if err != nil {
				return nil, fmt.Errorf("room %s: %w", roomID, err)
			}
			messages = append(messages, msg)
		}
		slices.SortStableFunc(messages, func(a, b models.Message) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
		seed.Messages[roomID] = messages
	}

	return seed, nil
}

func buildMessage(m messageDoc, roomID string, users map[string]models.User, now time.Time) (models.Message, error) {
	sender, ok := users[m.Sender]
	if !ok {
		return models.Message{}, fmt.Errorf("message %s: unknown sender %q", m.ID, m.Sender)
	}
	ago, err := parseAgo(m.Ago)
	if err != nil {
		return models.Message{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	if m.Type == "" {
		m.Type = models.MessageTypeText
	}
	if !m.Type.Valid() {
		return models.Message{}, fmt.Errorf("message %s: invalid type %q", m.ID, m.Type)
	}

	msg := models.Message{
		ID:           m.ID,
		Content:      m.Content,
		SenderID:     sender.ID,
		SenderName:   sender.Name,
		SenderAvatar: sender.Avatar,
		Timestamp:    now.Add(-ago),
		RoomID:       roomID,
		Type:         m.Type,
		Reactions:    []models.MessageReaction{},
	}
	for _, r := range m.Reactions {
		u, ok := users[r.UserID]
		if !ok {
			return models.Message{}, fmt.Errorf("message %s: reaction from unknown user %q", m.ID, r.UserID)
		}
		msg.Reactions = append(msg.Reactions, models.MessageReaction{Emoji: r.Emoji, UserID: u.ID, UserName: u.Name})
	}
	return msg, nil
}

func parseAgo(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("offset %q is in the future", s)
	}
	return d, nil
}
