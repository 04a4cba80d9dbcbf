package chat

import (
	"slices"
	"sync"
	"time"

	"parlor/internal/models"
)

const DefaultPageSize = 50

// Chat is a single room: its settings, participant snapshot and append-only
// message log.
type Chat struct {
	ID          string
	CreatorID   string
	CreatedAt   time.Time
	Type        models.RoomType
	Avatar      string
	name        string
	description string

	participants []models.User
	records      []models.Message
	// index maps message ID to its position in records.
	index map[string]int

	// RecordCallback is called for every participant except the author when
	// a record is added. It runs with the chat lock held and must not call
	// back into the Chat.
	RecordCallback func(receiverID string, chatID string, record models.Message)

	mux sync.RWMutex
}

type Config struct {
	ID             string
	Name           string
	Description    string
	Type           models.RoomType
	Avatar         string
	CreatorID      string
	CreatedAt      time.Time
	Participants   []models.User
	RecordCallback func(receiverID string, chatID string, record models.Message)
}

func New(config Config) *Chat {
	participants := make([]models.User, len(config.Participants))
	copy(participants, config.Participants)

	return &Chat{
		ID:             config.ID,
		CreatorID:      config.CreatorID,
		CreatedAt:      config.CreatedAt,
		Type:           config.Type,
		Avatar:         config.Avatar,
		name:           config.Name,
		description:    config.Description,
		participants:   participants,
		index:          make(map[string]int),
		RecordCallback: config.RecordCallback,
	}
}

// AddRecord appends a message to the log, making it the room's last message,
// and notifies every other participant through RecordCallback.
func (c *Chat) AddRecord(record models.Message) models.Message {
	c.mux.Lock()
	defer c.mux.Unlock()

	record = record.Clone()
	record.RoomID = c.ID

	c.index[record.ID] = len(c.records)
	c.records = append(c.records, record)

	if c.RecordCallback != nil {
		for _, p := range c.participants {
			if p.ID != record.SenderID {
				c.RecordCallback(p.ID, c.ID, record)
			}
		}
	}

	return record.Clone()
}

// GetPage returns up to limit records starting at offset, oldest first.
func (c *Chat) GetPage(limit, offset int) models.MessagePage {
	c.mux.RLock()
	defer c.mux.RUnlock()

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	total := len(c.records)
	page := models.MessagePage{
		Messages: []models.Message{},
		Total:    total,
	}
	if offset >= total {
		return page
	}

	// offset+limit may overflow, so clamp against what is left.
	end := offset + min(limit, total-offset)
	for _, r := range c.records[offset:end] {
		page.Messages = append(page.Messages, r.Clone())
	}
	page.HasMore = end < total
	return page
}

// GetRecords returns a copy of the whole log.
func (c *Chat) GetRecords() []models.Message {
	c.mux.RLock()
	defer c.mux.RUnlock()

	result := make([]models.Message, len(c.records))
	for i, r := range c.records {
		result[i] = r.Clone()
	}
	return result
}

func (c *Chat) Len() int {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return len(c.records)
}

// React applies a reaction change to a message. At most one reaction per
// (emoji, user) pair is kept. The result reports whether the reaction is
// present afterwards.
func (c *Chat) React(messageID string, reaction models.MessageReaction, action models.ReactionAction) (models.ReactionResult, models.Message, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	i, ok := c.index[messageID]
	if !ok {
		return "", models.Message{}, models.Errorf(models.ErrNotFound, "Message not found")
	}
	msg := &c.records[i]

	pos := slices.IndexFunc(msg.Reactions, func(r models.MessageReaction) bool {
		return r.Emoji == reaction.Emoji && r.UserID == reaction.UserID
	})
	exists := pos >= 0

	add := action == models.ReactionAdd || (action == models.ReactionToggle && !exists)

	var result models.ReactionResult
	switch {
	case add && !exists:
		msg.Reactions = append(msg.Reactions, reaction)
		result = models.ReactionAdded
	case add:
		result = models.ReactionAdded
	case exists:
		msg.Reactions = slices.Delete(msg.Reactions, pos, pos+1)
		result = models.ReactionRemoved
	default:
		result = models.ReactionRemoved
	}

	return result, msg.Clone(), nil
}

func (c *Chat) HasParticipant(userID string) bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return slices.ContainsFunc(c.participants, func(u models.User) bool { return u.ID == userID })
}

func (c *Chat) ParticipantIDs() []string {
	c.mux.RLock()
	defer c.mux.RUnlock()

	ids := make([]string, len(c.participants))
	for i, p := range c.participants {
		ids[i] = p.ID
	}
	return ids
}

func (c *Chat) Name() string {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.name
}

func (c *Chat) SetName(name string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.name = name
}

func (c *Chat) SetDescription(description string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.description = description
}

// SetParticipants replaces the participant snapshot.
func (c *Chat) SetParticipants(users []models.User) {
	c.mux.Lock()
	defer c.mux.Unlock()

	c.participants = make([]models.User, len(users))
	copy(c.participants, users)
}

// ActivityTime is the timestamp of the last message, or the creation time of
// an empty room.
func (c *Chat) ActivityTime() time.Time {
	c.mux.RLock()
	defer c.mux.RUnlock()

	if n := len(c.records); n > 0 {
		return c.records[n-1].Timestamp
	}
	return c.CreatedAt
}

// Info returns a snapshot of the room carrying the given unread count.
func (c *Chat) Info(unread int) models.ChatRoom {
	c.mux.RLock()
	defer c.mux.RUnlock()

	participants := make([]models.User, len(c.participants))
	copy(participants, c.participants)

	room := models.ChatRoom{
		ID:           c.ID,
		Name:         c.name,
		Description:  c.description,
		Participants: participants,
		UnreadCount:  unread,
		CreatedAt:    c.CreatedAt,
		Type:         c.Type,
		Avatar:       c.Avatar,
		CreatorID:    c.CreatorID,
	}
	if n := len(c.records); n > 0 {
		last := c.records[n-1].Clone()
		room.LastMessage = &last
	}
	return room
}
