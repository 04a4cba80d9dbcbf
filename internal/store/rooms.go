package store

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"parlor/internal/chat"
	"parlor/internal/content"
	"parlor/internal/ident"
	"parlor/internal/metrics"
	"parlor/internal/models"
)

// CreateRoom creates a room whose ID is the slug of its name. Unknown
// participant IDs are dropped and the creator is always included. The room
// starts with a system message announcing its creation.
func (s *Store) CreateRoom(name, description string, roomType models.RoomType, creatorID string, participantIDs []string) (models.ChatRoom, error) {
	name = strings.TrimSpace(name)
	if err := content.ValidateName("Room name", name); err != nil {
		return models.ChatRoom{}, err
	}
	if roomType == "" {
		roomType = models.RoomTypePublic
	}
	if !roomType.Valid() {
		return models.ChatRoom{}, models.Errorf(models.ErrValidation, "Invalid room type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roomNameTaken(name, "") {
		return models.ChatRoom{}, models.Errorf(models.ErrConflict, "A room with this name already exists")
	}
	creator, err := s.GetUser(creatorID)
	if err != nil {
		return models.ChatRoom{}, models.Errorf(models.ErrNotFound, "Creator user not found")
	}

	// Names are unique but slugs are not: a renamed room keeps its old slug,
	// and different names can share one.
	id := ident.RoomID(name)
	if _, exists := s.rooms[id]; exists || id == "" {
		id = ident.RandomRoomID()
	}

	participants := s.resolveUsers(participantIDs)
	if !slices.ContainsFunc(participants, func(u models.User) bool { return u.ID == creator.ID }) {
		participants = append(participants, creator)
	}

	now := s.now()
	room := chat.New(chat.Config{
		ID:           id,
		Name:         name,
		Description:  strings.TrimSpace(description),
		Type:         roomType,
		CreatorID:    creator.ID,
		CreatedAt:    now,
		Participants: participants,
	})
	s.appendRecord(room, models.Message{
		ID:         ident.SystemMessageID(),
		Content:    fmt.Sprintf("%s created the room \"%s\"", creator.Name, name),
		SenderID:   SystemSenderID,
		SenderName: SystemSenderName,
		Timestamp:  now,
		Type:       models.MessageTypeSystem,
	}, metrics.KindSystem)
	room.RecordCallback = s.countUnread
	s.rooms[id] = room

	s.log.Info("room created", "room_id", id, "user_id", creator.ID)
	return room.Info(0), nil
}

// UpdateRoom changes a room on behalf of one of its participants. A new
// participant list replaces the old one; the creator stays in it while the
// creator's account exists.
func (s *Store) UpdateRoom(roomID, userID string, upd models.RoomUpdate) (models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return models.ChatRoom{}, models.Errorf(models.ErrNotFound, "Room not found")
	}
	if !room.HasParticipant(userID) {
		return models.ChatRoom{}, models.Errorf(models.ErrForbidden, "User is not a participant in this room")
	}

	var name string
	if upd.Name != nil {
		name = strings.TrimSpace(*upd.Name)
		if err := content.ValidateName("Room name", name); err != nil {
			return models.ChatRoom{}, err
		}
		if s.roomNameTaken(name, roomID) {
			return models.ChatRoom{}, models.Errorf(models.ErrConflict, "A room with this name already exists")
		}
	}

	var participants []models.User
	if upd.Participants != nil {
		ids := *upd.Participants
		if room.CreatorID != "" && !slices.Contains(ids, room.CreatorID) {
			ids = append(slices.Clone(ids), room.CreatorID)
		}
		participants = s.resolveUsers(ids)
	}

	if upd.Name != nil {
		room.SetName(name)
	}
	if upd.Description != nil {
		room.SetDescription(strings.TrimSpace(*upd.Description))
	}
	if upd.Participants != nil {
		room.SetParticipants(participants)
	}

	return s.roomInfo(room, userID), nil
}

// DeleteRoom removes a room with its messages, typing markers and pending
// auto replies.
func (s *Store) DeleteRoom(roomID, userID string) error {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return models.Errorf(models.ErrNotFound, "Room not found")
	}
	if !room.HasParticipant(userID) {
		s.mu.Unlock()
		return models.Errorf(models.ErrForbidden, "User is not authorized to delete this room")
	}

	delete(s.rooms, roomID)
	delete(s.unread, roomID)
	for u, open := range s.open {
		if open == roomID {
			delete(s.open, u)
		}
	}
	cancelled := s.scheduler.CancelGroup(roomID)
	s.mu.Unlock()

	s.typing.DropRoom(roomID)
	s.metrics.AutoReply(metrics.ReplyCancelled, cancelled)

	s.log.Info("room deleted", "room_id", roomID, "user_id", userID, "cancelled_replies", cancelled)
	return nil
}

// GetRoom returns the room carrying viewerID's unread counter.
func (s *Store) GetRoom(roomID, viewerID string) (models.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return models.ChatRoom{}, models.Errorf(models.ErrNotFound, "Room not found")
	}
	return s.roomInfo(room, viewerID), nil
}

// ListRooms returns rooms matching the filter, most recently active first.
// Unread counters are those of filter.ParticipantUserID.
func (s *Store) ListRooms(filter models.RoomFilter) []models.ChatRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)

	type entry struct {
		info     models.ChatRoom
		activity int64
	}
	entries := make([]entry, 0, len(s.rooms))
	for _, room := range s.rooms {
		if filter.Type != "" && room.Type != filter.Type {
			continue
		}
		if filter.ParticipantUserID != "" && !room.HasParticipant(filter.ParticipantUserID) {
			continue
		}
		info := s.roomInfo(room, filter.ParticipantUserID)
		if search != "" &&
			!strings.Contains(strings.ToLower(info.Name), search) &&
			!strings.Contains(strings.ToLower(info.Description), search) {
			continue
		}
		entries = append(entries, entry{info: info, activity: room.ActivityTime().UnixNano()})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(b.activity, a.activity); c != 0 {
			return c
		}
		return cmp.Compare(a.info.ID, b.info.ID)
	})

	rooms := make([]models.ChatRoom, len(entries))
	for i, e := range entries {
		rooms[i] = e.info
	}
	return rooms
}

// OpenRoom makes roomID the user's open room and clears its unread counter.
// Messages arriving in the open room are not counted as unread for the user.
func (s *Store) OpenRoom(userID, roomID string) (models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.GetUser(userID); err != nil {
		return models.ChatRoom{}, err
	}
	room, ok := s.rooms[roomID]
	if !ok {
		return models.ChatRoom{}, models.Errorf(models.ErrNotFound, "Room not found")
	}

	s.open[userID] = roomID
	delete(s.unread[roomID], userID)
	return s.roomInfo(room, userID), nil
}

// CloseRoom forgets the user's open room.
func (s *Store) CloseRoom(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, userID)
}

func (s *Store) MarkRoomRead(userID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[roomID]; !ok {
		return models.Errorf(models.ErrNotFound, "Room not found")
	}
	delete(s.unread[roomID], userID)
	return nil
}

// roomNameTaken reports whether another room already uses name, ignoring
// case. mu must be held.
func (s *Store) roomNameTaken(name, exceptID string) bool {
	for id, room := range s.rooms {
		if id != exceptID && strings.EqualFold(room.Name(), name) {
			return true
		}
	}
	return false
}
