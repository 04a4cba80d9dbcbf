package store

import (
	"parlor/internal/models"
)

// StartTyping marks the user as typing in the room, refreshing an existing
// marker. An empty userName is filled from the user record when known.
func (s *Store) StartTyping(userID, userName, roomID string) (models.TypingUser, error) {
	if userID == "" {
		return models.TypingUser{}, models.Errorf(models.ErrValidation, "User ID is required")
	}
	if userName == "" {
		if u, err := s.GetUser(userID); err == nil {
			userName = u.Name
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.rooms[roomID]; !ok {
		return models.TypingUser{}, models.Errorf(models.ErrNotFound, "Room not found")
	}
	return s.typing.Start(userID, userName, roomID), nil
}

func (s *Store) StopTyping(userID, roomID string) {
	s.typing.Stop(userID, roomID)
}

// TypingUsers lists who is typing in the room, oldest marker first.
func (s *Store) TypingUsers(roomID, excludeUserID string) []models.TypingUser {
	return s.typing.InRoom(roomID, excludeUserID)
}
