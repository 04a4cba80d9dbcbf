// Package store is the in-memory chat state: users, rooms with their message
// logs, per-user unread counters, typing markers and pending auto replies.
package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"parlor/internal/autoreply"
	"parlor/internal/chat"
	"parlor/internal/metrics"
	"parlor/internal/models"
	"parlor/internal/schedule"
	"parlor/internal/stubs"
	"parlor/internal/typing"

	"github.com/c-pro/geche"
)

// SystemSenderID authors the messages the store generates itself.
const (
	SystemSenderID   = "system"
	SystemSenderName = "System"
)

type Options struct {
	// Seed is loaded into the empty store. Nil starts with no data.
	Seed *stubs.Seed
	// Responder simulates answers to sent messages. Nil disables them.
	Responder *autoreply.Responder
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	TypingExpiry   time.Duration
	TypingInterval time.Duration

	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Store is safe for concurrent use. Locks are taken in the order
// mu, users, room.
type Store struct {
	users *geche.Locker[string, models.User]

	rooms map[string]*chat.Chat
	// unread maps room ID to per-user unread counters.
	unread map[string]map[string]int
	// open maps user ID to the room the user currently has open.
	open map[string]string

	typing    *typing.Tracker
	scheduler *schedule.Scheduler
	responder *autoreply.Responder
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time

	mu sync.RWMutex
}

func New(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Store{
		users:     geche.NewLocker[string, models.User](geche.NewMapCache[string, models.User]()),
		rooms:     make(map[string]*chat.Chat),
		unread:    make(map[string]map[string]int),
		open:      make(map[string]string),
		typing:    typing.NewTracker(opts.TypingExpiry, opts.TypingInterval),
		scheduler: schedule.New(),
		responder: opts.Responder,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		now:       opts.Now,
	}
	s.typing.SetClock(opts.Now)
	s.typing.OnExpire = s.metrics.TypingExpired

	if opts.Seed != nil {
		s.load(opts.Seed)
	}
	return s
}

func (s *Store) load(seed *stubs.Seed) {
	tx := s.users.Lock()
	for _, u := range seed.Users {
		tx.Set(u.ID, u)
	}
	tx.Unlock()

	for _, r := range seed.Rooms {
		room := chat.New(chat.Config{
			ID:           r.ID,
			Name:         r.Name,
			Description:  r.Description,
			Type:         r.Type,
			Avatar:       r.Avatar,
			CreatorID:    r.CreatorID,
			CreatedAt:    r.CreatedAt,
			Participants: s.resolveUsers(r.Participants),
		})
		for _, msg := range seed.Messages[r.ID] {
			room.AddRecord(msg)
		}
		room.RecordCallback = s.countUnread
		s.rooms[r.ID] = room

		for userID, n := range r.Unread {
			if n > 0 {
				s.unreadFor(r.ID)[userID] = n
			}
		}
	}

	s.log.Info("store seeded", "users", len(seed.Users), "rooms", len(seed.Rooms))
}

// Run expires stale typing markers until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	return s.typing.Run(ctx)
}

// Close cancels every pending auto reply and waits for running ones to finish.
func (s *Store) Close() {
	n := s.scheduler.Stop()
	s.metrics.AutoReply(metrics.ReplyCancelled, n)
	if n > 0 {
		s.log.Info("cancelled pending auto replies", "count", n)
	}
}

// PendingReplies reports how many auto replies are armed.
func (s *Store) PendingReplies() int {
	return s.scheduler.Pending()
}

// countUnread is the rooms' record callback. It runs with mu held for writing.
func (s *Store) countUnread(receiverID, roomID string, _ models.Message) {
	if s.open[receiverID] == roomID {
		return
	}
	s.unreadFor(roomID)[receiverID]++
}

func (s *Store) unreadFor(roomID string) map[string]int {
	counts, ok := s.unread[roomID]
	if !ok {
		counts = make(map[string]int)
		s.unread[roomID] = counts
	}
	return counts
}

// appendRecord adds msg to room and accounts for it. mu must be held for writing.
func (s *Store) appendRecord(room *chat.Chat, msg models.Message, kind string) models.Message {
	msg = room.AddRecord(msg)
	s.metrics.MessageAdded(kind)
	return msg
}

// roomInfo returns the room with the viewer's unread counter. mu must be held.
func (s *Store) roomInfo(room *chat.Chat, viewerID string) models.ChatRoom {
	unread := 0
	if viewerID != "" {
		unread = s.unread[room.ID][viewerID]
	}
	return room.Info(unread)
}

// resolveUsers maps IDs to users, dropping unknown IDs and duplicates.
func (s *Store) resolveUsers(ids []string) []models.User {
	tx := s.users.Lock()
	defer tx.Unlock()

	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if slices.ContainsFunc(users, func(u models.User) bool { return u.ID == id }) {
			continue
		}
		if u, err := tx.Get(id); err == nil {
			users = append(users, u)
		}
	}
	return users
}
