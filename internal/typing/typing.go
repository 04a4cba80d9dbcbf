// Package typing tracks ephemeral "user is typing" markers per room.
package typing

import (
	"context"
	"slices"
	"sync"
	"time"

	"parlor/internal/models"
)

const (
	DefaultExpiry   = 3 * time.Second
	DefaultInterval = time.Second
)

type key struct {
	userID string
	roomID string
}

// Tracker holds at most one marker per (user, room). Markers older than Expiry
// are dropped by Sweep.
type Tracker struct {
	Expiry   time.Duration
	Interval time.Duration
	// OnExpire, when set, receives the number of markers removed by each sweep.
	OnExpire func(n int)

	entries map[key]models.TypingUser
	now     func() time.Time
	mu      sync.Mutex
}

func NewTracker(expiry, interval time.Duration) *Tracker {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tracker{
		Expiry:   expiry,
		Interval: interval,
		entries:  make(map[key]models.TypingUser),
		now:      time.Now,
	}
}

// SetClock replaces the time source used to stamp markers and drive Run.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Start records that the user is typing in the room, refreshing the timestamp
// of an existing marker.
func (t *Tracker) Start(userID, userName, roomID string) models.TypingUser {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{userID: userID, roomID: roomID}
	entry, ok := t.entries[k]
	if !ok {
		entry = models.TypingUser{UserID: userID, UserName: userName, RoomID: roomID}
	}
	entry.Timestamp = t.now()
	t.entries[k] = entry
	return entry
}

func (t *Tracker) Stop(userID, roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key{userID: userID, roomID: roomID})
}

// DropRoom removes every marker of a room.
func (t *Tracker) DropRoom(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k := range t.entries {
		if k.roomID == roomID {
			delete(t.entries, k)
		}
	}
}

// InRoom lists markers of a room, oldest first, leaving out excludeUserID.
func (t *Tracker) InRoom(roomID, excludeUserID string) []models.TypingUser {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := []models.TypingUser{}
	for k, entry := range t.entries {
		if k.roomID == roomID && k.userID != excludeUserID {
			result = append(result, entry)
		}
	}
	slices.SortFunc(result, func(a, b models.TypingUser) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		if a.UserID < b.UserID {
			return -1
		}
		if a.UserID > b.UserID {
			return 1
		}
		return 0
	})
	return result
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sweep removes markers that have not been refreshed for longer than Expiry.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	removed := 0
	for k, entry := range t.entries {
		if now.Sub(entry.Timestamp) > t.Expiry {
			delete(t.entries, k)
			removed++
		}
	}
	t.mu.Unlock()

	if removed > 0 && t.OnExpire != nil {
		t.OnExpire(removed)
	}
	return removed
}

func (t *Tracker) clock() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now()
}

// Run sweeps every Interval until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Sweep(t.clock())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
