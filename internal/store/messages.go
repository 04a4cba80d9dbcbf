package store

import (
	"strings"

	"parlor/internal/chat"
	"parlor/internal/content"
	"parlor/internal/ident"
	"parlor/internal/metrics"
	"parlor/internal/models"
	"parlor/internal/schedule"
)

// SendMessage appends a message from senderID to the room. The sender's name
// and avatar are copied into the message as they are now. pending reports
// whether an automatic answer has been scheduled.
func (s *Store) SendMessage(senderID, roomID, text string, msgType models.MessageType) (msg models.Message, pending bool, err error) {
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if !msgType.Valid() {
		return models.Message{}, false, models.Errorf(models.ErrValidation, "Invalid message type")
	}
	if err := content.ValidateMessage(text); err != nil {
		return models.Message{}, false, err
	}

	msg, pending, err = s.send(senderID, roomID, strings.TrimSpace(text), msgType)
	if err != nil {
		return models.Message{}, false, err
	}

	s.typing.Stop(senderID, roomID)
	return msg, pending, nil
}

// send appends the message and arms the auto reply under the same lock, so a
// concurrent DeleteRoom either sees the pending reply or prevents the send.
func (s *Store) send(senderID, roomID, text string, msgType models.MessageType) (models.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return models.Message{}, false, models.Errorf(models.ErrNotFound, "Room not found")
	}
	sender, err := s.GetUser(senderID)
	if err != nil {
		return models.Message{}, false, err
	}

	msg := s.appendRecord(room, models.Message{
		ID:           ident.MessageID(),
		Content:      text,
		SenderID:     sender.ID,
		SenderName:   sender.Name,
		SenderAvatar: sender.Avatar,
		Timestamp:    s.now(),
		Type:         msgType,
	}, metrics.KindUser)
	return msg, s.scheduleReply(room, msg), nil
}

// ListMessages returns a page of the room's messages, oldest first. An
// unknown room yields an empty page.
func (s *Store) ListMessages(roomID string, limit, offset int) models.MessagePage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return models.MessagePage{Messages: []models.Message{}}
	}
	return room.GetPage(limit, offset)
}

// RoomMessages returns the whole log of a room.
func (s *Store) RoomMessages(roomID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, models.Errorf(models.ErrNotFound, "Room not found")
	}
	return room.GetRecords(), nil
}

// ToggleReaction adds, removes or toggles the (emoji, user) reaction on a
// message. The result reports whether the reaction is present afterwards.
func (s *Store) ToggleReaction(messageID, roomID, emoji, userID, userName string, action models.ReactionAction) (models.ReactionResult, models.Message, error) {
	if action == "" {
		action = models.ReactionToggle
	}
	if !action.Valid() {
		return "", models.Message{}, models.Errorf(models.ErrValidation, "Invalid reaction action")
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return "", models.Message{}, models.Errorf(models.ErrValidation, "Emoji is required")
	}
	if userID == "" {
		return "", models.Message{}, models.Errorf(models.ErrValidation, "User ID is required")
	}
	if userName == "" {
		if u, err := s.GetUser(userID); err == nil {
			userName = u.Name
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return "", models.Message{}, models.Errorf(models.ErrNotFound, "Room not found")
	}

	result, msg, err := room.React(messageID, models.MessageReaction{Emoji: emoji, UserID: userID, UserName: userName}, action)
	if err != nil {
		return "", models.Message{}, err
	}
	s.metrics.Reaction(string(result))
	return result, msg, nil
}

// scheduleReply arms an automatic answer to msg in room if the responder
// decides so. mu must be held for writing.
func (s *Store) scheduleReply(room *chat.Chat, msg models.Message) bool {
	if s.responder == nil {
		return false
	}
	delay, ok := s.responder.Roll()
	if !ok {
		return false
	}

	key := schedule.Key{Group: room.ID, ID: msg.ID}
	if !s.scheduler.After(key, delay, func() { s.deliverReply(room, msg.SenderID) }) {
		return false
	}
	s.metrics.AutoReply(metrics.ReplyScheduled, 1)
	s.log.Debug("auto reply scheduled", "room_id", msg.RoomID, "message_id", msg.ID, "delay", delay)
	return true
}

// deliverReply appends an answer from a random online user other than
// excludeUserID. It does nothing if the room is gone, even when another room
// has taken its ID since, or if nobody can answer.
func (s *Store) deliverReply(room *chat.Chat, excludeUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID := room.ID
	if s.rooms[roomID] != room {
		s.metrics.AutoReply(metrics.ReplySkipped, 1)
		return
	}
	user, text, ok := s.responder.Pick(s.allUsers(), excludeUserID)
	if !ok {
		s.metrics.AutoReply(metrics.ReplySkipped, 1)
		s.log.Debug("no user available for auto reply", "room_id", roomID)
		return
	}

	msg := s.appendRecord(room, models.Message{
		ID:           ident.MessageID(),
		Content:      text,
		SenderID:     user.ID,
		SenderName:   user.Name,
		SenderAvatar: user.Avatar,
		Timestamp:    s.now(),
		Type:         models.MessageTypeText,
	}, metrics.KindAuto)
	s.metrics.AutoReply(metrics.ReplyDelivered, 1)
	s.log.Debug("auto reply delivered", "room_id", roomID, "message_id", msg.ID, "user_id", user.ID)
}
