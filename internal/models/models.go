package models

import "time"

type UserStatus string

const (
	UserStatusOnline  UserStatus = "online"
	UserStatusAway    UserStatus = "away"
	UserStatusOffline UserStatus = "offline"
)

// Valid reports whether s is one of the known presence states.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusOnline, UserStatusAway, UserStatusOffline:
		return true
	}
	return false
}

// Priority orders statuses for listings: online first, offline last.
func (s UserStatus) Priority() int {
	switch s {
	case UserStatusOnline:
		return 3
	case UserStatusAway:
		return 2
	case UserStatusOffline:
		return 1
	}
	return 0
}

// User represents a chat participant.
type User struct {
	ID       string     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	Avatar   string     `json:"avatar" yaml:"avatar"`
	Status   UserStatus `json:"status" yaml:"status"`
	LastSeen time.Time  `json:"lastSeen" yaml:"-"`
}

type RoomType string

const (
	RoomTypePublic  RoomType = "public"
	RoomTypePrivate RoomType = "private"
	RoomTypeGroup   RoomType = "group"
)

func (t RoomType) Valid() bool {
	switch t {
	case RoomTypePublic, RoomTypePrivate, RoomTypeGroup:
		return true
	}
	return false
}

// ChatRoom is a room as seen by a particular viewer.
// UnreadCount is the viewer's counter; it is zero when no viewer is known.
type ChatRoom struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Participants []User    `json:"participants"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	UnreadCount  int       `json:"unreadCount"`
	CreatedAt    time.Time `json:"createdAt"`
	Type         RoomType  `json:"type"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatorID    string    `json:"creatorId,omitempty"`
}

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
	MessageTypeFile   MessageType = "file"
	MessageTypeEmoji  MessageType = "emoji"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeSystem, MessageTypeFile, MessageTypeEmoji:
		return true
	}
	return false
}

// Message is a chat message. Sender fields are a copy of the user taken at send time.
type Message struct {
	ID           string            `json:"id"`
	Content      string            `json:"content"`
	SenderID     string            `json:"senderId"`
	SenderName   string            `json:"senderName"`
	SenderAvatar string            `json:"senderAvatar"`
	Timestamp    time.Time         `json:"timestamp"`
	RoomID       string            `json:"roomId"`
	Type         MessageType       `json:"type"`
	Reactions    []MessageReaction `json:"reactions"`
	Edited       bool              `json:"edited,omitempty"`
	EditedAt     *time.Time        `json:"editedAt,omitempty"`
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	reactions := make([]MessageReaction, len(m.Reactions))
	copy(reactions, m.Reactions)
	m.Reactions = reactions
	if m.EditedAt != nil {
		t := *m.EditedAt
		m.EditedAt = &t
	}
	return m
}

type MessageReaction struct {
	Emoji    string `json:"emoji" yaml:"emoji"`
	UserID   string `json:"userId" yaml:"userId"`
	UserName string `json:"userName" yaml:"userName"`
}

type ReactionAction string

const (
	ReactionAdd    ReactionAction = "add"
	ReactionRemove ReactionAction = "remove"
	ReactionToggle ReactionAction = "toggle"
)

func (a ReactionAction) Valid() bool {
	switch a {
	case ReactionAdd, ReactionRemove, ReactionToggle:
		return true
	}
	return false
}

type ReactionResult string

const (
	ReactionAdded   ReactionResult = "added"
	ReactionRemoved ReactionResult = "removed"
)

// TypingUser marks a user composing a message in a room.
type TypingUser struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	RoomID    string    `json:"roomId"`
	Timestamp time.Time `json:"timestamp"`
}

type StatusCounts struct {
	Online  int `json:"onlineCount"`
	Away    int `json:"awayCount"`
	Offline int `json:"offlineCount"`
}

type UserFilter struct {
	Status UserStatus
	Search string
}

type RoomFilter struct {
	ParticipantUserID string
	Search            string
	Type              RoomType
}

// UserUpdate carries optional profile changes; nil fields are left untouched.
type UserUpdate struct {
	Name   *string
	Status *UserStatus
	Avatar *string
}

// RoomUpdate carries optional room changes; nil fields are left untouched.
type RoomUpdate struct {
	Name         *string
	Description  *string
	Participants *[]string
}

type MessagePage struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"totalMessages"`
	HasMore  bool      `json:"hasMore"`
}
