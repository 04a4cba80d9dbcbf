package store

import (
	"cmp"
	"net/url"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"parlor/internal/content"
	"parlor/internal/ident"
	"parlor/internal/models"
)

const avatarPlaceholder = "https://placehold.co/200x200?text="

// CreateUser registers a new user. Avatar defaults to a placeholder showing
// the first letter of the name and status defaults to online.
func (s *Store) CreateUser(name, avatar string, status models.UserStatus) (models.User, error) {
	name = strings.TrimSpace(name)
	if err := content.ValidateName("Name", name); err != nil {
		return models.User{}, err
	}
	if status == "" {
		status = models.UserStatusOnline
	}
	if !status.Valid() {
		return models.User{}, models.Errorf(models.ErrValidation, "Invalid status. Must be online, away, or offline")
	}
	if avatar == "" {
		avatar = defaultAvatar(name)
	}

	tx := s.users.Lock()
	defer tx.Unlock()

	if nameTaken(tx.Snapshot(), name, "") {
		return models.User{}, models.Errorf(models.ErrConflict, "A user with this name already exists")
	}

	user := models.User{
		ID:       ident.UserID(),
		Name:     name,
		Avatar:   avatar,
		Status:   status,
		LastSeen: s.now(),
	}
	tx.Set(user.ID, user)

	s.log.Debug("user created", "user_id", user.ID)
	return user, nil
}

// UpdateUser applies the non-nil fields of upd. A status change refreshes
// LastSeen. Messages and participant lists keep the data they were given.
func (s *Store) UpdateUser(id string, upd models.UserUpdate) (models.User, error) {
	tx := s.users.Lock()
	defer tx.Unlock()

	user, err := tx.Get(id)
	if err != nil {
		return models.User{}, models.Errorf(models.ErrNotFound, "User not found")
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if err := content.ValidateName("Name", name); err != nil {
			return models.User{}, err
		}
		if nameTaken(tx.Snapshot(), name, id) {
			return models.User{}, models.Errorf(models.ErrConflict, "A user with this name already exists")
		}
		user.Name = name
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return models.User{}, models.Errorf(models.ErrValidation, "Invalid status. Must be online, away, or offline")
		}
		user.Status = *upd.Status
		user.LastSeen = s.now()
	}
	if upd.Avatar != nil {
		user.Avatar = *upd.Avatar
	}

	tx.Set(id, user)
	return user, nil
}

// DeleteUser removes the user only. Rooms and messages referencing the user
// are left as they are.
func (s *Store) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.users.Lock()
	defer tx.Unlock()

	if _, err := tx.Get(id); err != nil {
		return models.Errorf(models.ErrNotFound, "User not found")
	}
	if err := tx.Del(id); err != nil {
		return models.Errorf(models.ErrInternal, "failed to delete user %s: %v", id, err)
	}
	delete(s.open, id)

	s.log.Debug("user deleted", "user_id", id)
	return nil
}

func (s *Store) GetUser(id string) (models.User, error) {
	tx := s.users.Lock()
	defer tx.Unlock()

	user, err := tx.Get(id)
	if err != nil {
		return models.User{}, models.Errorf(models.ErrNotFound, "User not found")
	}
	return user, nil
}

// ListUsers returns users matching the filter, online first and then by name.
// The counts cover all users regardless of the filter.
func (s *Store) ListUsers(filter models.UserFilter) ([]models.User, models.StatusCounts) {
	all := s.allUsers()
	search := strings.ToLower(filter.Search)

	var counts models.StatusCounts
	users := []models.User{}
	for _, u := range all {
		switch u.Status {
		case models.UserStatusOnline:
			counts.Online++
		case models.UserStatusAway:
			counts.Away++
		case models.UserStatusOffline:
			counts.Offline++
		}

		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) {
			continue
		}
		users = append(users, u)
	}

	slices.SortFunc(users, func(a, b models.User) int {
		if c := cmp.Compare(b.Status.Priority(), a.Status.Priority()); c != 0 {
			return c
		}
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return users, counts
}

// allUsers returns every user ordered by ID.
func (s *Store) allUsers() []models.User {
	tx := s.users.Lock()
	snapshot := tx.Snapshot()
	tx.Unlock()

	users := make([]models.User, 0, len(snapshot))
	for _, u := range snapshot {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b models.User) int { return cmp.Compare(a.ID, b.ID) })
	return users
}

func nameTaken(users map[string]models.User, name, exceptID string) bool {
	for id, u := range users {
		if id != exceptID && strings.EqualFold(u.Name, name) {
			return true
		}
	}
	return false
}

func defaultAvatar(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	return avatarPlaceholder + url.QueryEscape(string(unicode.ToUpper(r)))
}
