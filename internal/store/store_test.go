package store

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"parlor/internal/autoreply"
	"parlor/internal/models"
	"parlor/internal/stubs"

	"github.com/stretchr/testify/require"
)

type testClock struct {
	t  time.Time
	mu sync.Mutex
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T, opts Options) (*Store, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	opts.Now = clock.Now
	s := New(opts)
	t.Cleanup(s.Close)
	return s, clock
}

func newSeededStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	seed, err := stubs.Default(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to load seed: %v", err)
	}
	return newTestStore(t, Options{Seed: seed})
}

func mustUser(t *testing.T, s *Store, name string) models.User {
	t.Helper()
	u, err := s.CreateUser(name, "", "")
	if err != nil {
		t.Fatalf("CreateUser(%q) error = %v", name, err)
	}
	return u
}

func TestCreateUser(t *testing.T) {
	s, clock := newTestStore(t, Options{})

	u := mustUser(t, s, "  zoe ")
	if u.Name != "zoe" || u.Status != models.UserStatusOnline {
		t.Errorf("unexpected user %+v", u)
	}
	if u.Avatar != "https://placehold.co/200x200?text=Z" {
		t.Errorf("unexpected default avatar %q", u.Avatar)
	}
	if !u.LastSeen.Equal(clock.Now()) {
		t.Errorf("lastSeen = %v", u.LastSeen)
	}
	if !strings.HasPrefix(u.ID, "user_") {
		t.Errorf("unexpected id %q", u.ID)
	}

	tests := []struct {
		name   string
		input  string
		status models.UserStatus
		kind   error
	}{
		{"too short", "Z", "", models.ErrValidation},
		{"too long", strings.Repeat("z", 51), "", models.ErrValidation},
		{"duplicate any case", "ZOE", "", models.ErrConflict},
		{"bad status", "Yann", "busy", models.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateUser(tt.input, "", tt.status)
			if !errors.Is(err, tt.kind) {
				t.Errorf("CreateUser(%q) error = %v, want %v", tt.input, err, tt.kind)
			}
		})
	}
}

func TestUpdateUser(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	zoe := mustUser(t, s, "Zoe")
	mustUser(t, s, "Yann")

	clock.Advance(time.Minute)
	away := models.UserStatusAway
	u, err := s.UpdateUser(zoe.ID, models.UserUpdate{Status: &away})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if u.Status != models.UserStatusAway || !u.LastSeen.Equal(clock.Now()) {
		t.Errorf("status update not applied: %+v", u)
	}

	same := "zoe"
	if _, err := s.UpdateUser(zoe.ID, models.UserUpdate{Name: &same}); err != nil {
		t.Errorf("renaming to own name in another case must succeed, got %v", err)
	}

	taken := "yann"
	if _, err := s.UpdateUser(zoe.ID, models.UserUpdate{Name: &taken}); !errors.Is(err, models.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	bad := models.UserStatus("busy")
	if _, err := s.UpdateUser(zoe.ID, models.UserUpdate{Status: &bad}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	if _, err := s.UpdateUser("nobody", models.UserUpdate{}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeleteUserKeepsHistory(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	zoe := mustUser(t, s, "Zoe")
	yann := mustUser(t, s, "Yann")

	room, err := s.CreateRoom("Launch", "", "", zoe.ID, []string{yann.ID})
	if err != nil {
		t.Fatal(err)
	}
	msg, _, err := s.SendMessage(yann.ID, room.ID, "hello", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteUser(yann.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if err := s.DeleteUser(yann.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
	if _, err := s.GetUser(yann.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected deleted user to be gone, got %v", err)
	}

	got, _ := s.GetRoom(room.ID, "")
	if len(got.Participants) != 2 {
		t.Errorf("participants must be kept, got %d", len(got.Participants))
	}
	page := s.ListMessages(room.ID, 10, 0)
	if last := page.Messages[len(page.Messages)-1]; last.ID != msg.ID || last.SenderName != "Yann" {
		t.Errorf("message sender snapshot lost: %+v", last)
	}
}

func TestListUsers(t *testing.T) {
	s, _ := newSeededStore(t)

	users, counts := s.ListUsers(models.UserFilter{})
	if counts != (models.StatusCounts{Online: 3, Away: 1, Offline: 1}) {
		t.Errorf("unexpected counts %+v", counts)
	}
	want := []string{"Alice Johnson", "Bob Smith", "Emma Thompson", "Carol Davis", "David Wilson"}
	if len(users) != len(want) {
		t.Fatalf("expected %d users, got %d", len(want), len(users))
	}
	for i, name := range want {
		if users[i].Name != name {
			t.Errorf("users[%d] = %s, want %s", i, users[i].Name, name)
		}
	}

	users, counts = s.ListUsers(models.UserFilter{Status: models.UserStatusOnline, Search: "SMITH"})
	if len(users) != 1 || users[0].Name != "Bob Smith" {
		t.Errorf("unexpected filtered users %+v", users)
	}
	if counts.Online != 3 {
		t.Errorf("counts must ignore the filter, got %+v", counts)
	}
}

func TestCreateRoom(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	zoe := mustUser(t, s, "Zoe")
	yann := mustUser(t, s, "Yann")

	room, err := s.CreateRoom(" Launch Pad ", " Go time ", "", zoe.ID, []string{yann.ID, "ghost", yann.ID})
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if room.ID != "launch-pad" || room.Name != "Launch Pad" || room.Description != "Go time" {
		t.Errorf("unexpected room %+v", room)
	}
	if room.Type != models.RoomTypePublic || !room.CreatedAt.Equal(clock.Now()) {
		t.Errorf("unexpected defaults %+v", room)
	}
	if len(room.Participants) != 2 || room.Participants[0].ID != yann.ID || room.Participants[1].ID != zoe.ID {
		t.Errorf("unexpected participants %+v", room.Participants)
	}
	if room.LastMessage == nil || room.LastMessage.Type != models.MessageTypeSystem {
		t.Fatalf("expected system message, got %+v", room.LastMessage)
	}
	if room.LastMessage.Content != `Zoe created the room "Launch Pad"` || room.LastMessage.SenderID != SystemSenderID {
		t.Errorf("unexpected system message %+v", room.LastMessage)
	}

	rooms := s.ListRooms(models.RoomFilter{})
	found := 0
	for _, r := range rooms {
		if r.Name == "Launch Pad" {
			found++
		}
	}
	if found != 1 {
		t.Errorf("expected room listed once, got %d", found)
	}

	tests := []struct {
		name    string
		room    string
		creator string
		kind    error
	}{
		{"duplicate any case", "LAUNCH pad", zoe.ID, models.ErrConflict},
		{"short name", "L", zoe.ID, models.ErrValidation},
		{"unknown creator", "Orbit", "ghost", models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateRoom(tt.room, "", "", tt.creator, nil)
			if !errors.Is(err, tt.kind) {
				t.Errorf("CreateRoom(%q) error = %v, want %v", tt.room, err, tt.kind)
			}
		})
	}

	if _, err := s.CreateRoom("Orbit", "", "secret", zoe.ID, nil); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation error for room type, got %v", err)
	}
}

func TestCreateRoomSlugTaken(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	zoe := mustUser(t, s, "Zoe")

	first, err := s.CreateRoom("Launch", "", "", zoe.ID, nil)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	rocket := "Rocket"
	if _, err := s.UpdateRoom(first.ID, zoe.ID, models.RoomUpdate{Name: &rocket}); err != nil {
		t.Fatalf("UpdateRoom() error = %v", err)
	}

	tests := []struct {
		name string
		room string
	}{
		{"name freed by rename", "Launch"},
		{"different name same slug", "launch!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := s.CreateRoom(tt.room, "", "", zoe.ID, nil)
			if err != nil {
				t.Fatalf("CreateRoom(%q) error = %v", tt.room, err)
			}
			if !strings.HasPrefix(room.ID, "room_") {
				t.Errorf("expected generated id, got %q", room.ID)
			}
		})
	}

	renamed, err := s.GetRoom("launch", "")
	if err != nil || renamed.Name != "Rocket" {
		t.Errorf("renamed room lost its id: %+v, %v", renamed, err)
	}
}

func TestCreateRoomWithoutSlug(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	zoe := mustUser(t, s, "Zoe")

	room, err := s.CreateRoom("!!!", "", "", zoe.ID, nil)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if !strings.HasPrefix(room.ID, "room_") {
		t.Errorf("expected generated id, got %q", room.ID)
	}
}

func TestUpdateRoom(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	zoe := mustUser(t, s, "Zoe")
	yann := mustUser(t, s, "Yann")
	xia := mustUser(t, s, "Xia")

	room, _ := s.CreateRoom("Launch", "", "", zoe.ID, []string{yann.ID})
	s.CreateRoom("Orbit", "", "", zoe.ID, nil)

	if _, err := s.UpdateRoom(room.ID, xia.ID, models.RoomUpdate{}); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if _, err := s.UpdateRoom("nope", zoe.ID, models.RoomUpdate{}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	taken := "orbit"
	if _, err := s.UpdateRoom(room.ID, yann.ID, models.RoomUpdate{Name: &taken}); !errors.Is(err, models.ErrConflict) {
		t.Errorf("expected conflict on rename, got %v", err)
	}

	name, desc := "Launch Control", "  countdown "
	participants := []string{xia.ID, "ghost"}
	got, err := s.UpdateRoom(room.ID, yann.ID, models.RoomUpdate{Name: &name, Description: &desc, Participants: &participants})
	if err != nil {
		t.Fatalf("UpdateRoom() error = %v", err)
	}
	if got.ID != room.ID || got.Name != name || got.Description != "countdown" {
		t.Errorf("unexpected room %+v", got)
	}
	if len(got.Participants) != 2 || got.Participants[0].ID != xia.ID || got.Participants[1].ID != zoe.ID {
		t.Errorf("expected Xia and the creator, got %+v", got.Participants)
	}

	if _, err := s.UpdateRoom(room.ID, yann.ID, models.RoomUpdate{}); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("removed participant must be forbidden, got %v", err)
	}
}

func TestDeleteRoom(t *testing.T) {
	s, _ := newSeededStore(t)

	if err := s.DeleteRoom("random", "2"); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("expected forbidden for non participant, got %v", err)
	}
	if err := s.DeleteRoom("random", "1"); err != nil {
		t.Fatalf("DeleteRoom() error = %v", err)
	}
	if err := s.DeleteRoom("random", "1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	for _, r := range s.ListRooms(models.RoomFilter{}) {
		if r.ID == "random" {
			t.Error("deleted room still listed")
		}
	}
	if page := s.ListMessages("random", 50, 0); page.Total != 0 || len(page.Messages) != 0 {
		t.Errorf("messages of deleted room still accessible: %+v", page)
	}
	if _, err := s.RoomMessages("random"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListRooms(t *testing.T) {
	s, _ := newSeededStore(t)

	rooms := s.ListRooms(models.RoomFilter{})
	want := []string{"tech-talk", "project-alpha", "random", "general"}
	if len(rooms) != len(want) {
		t.Fatalf("expected %d rooms, got %d", len(want), len(rooms))
	}
	for i, id := range want {
		if rooms[i].ID != id {
			t.Errorf("rooms[%d] = %s, want %s", i, rooms[i].ID, id)
		}
	}

	tests := []struct {
		name   string
		filter models.RoomFilter
		want   []string
	}{
		{"participant", models.RoomFilter{ParticipantUserID: "3"}, []string{"random", "general"}},
		{"search description", models.RoomFilter{Search: "PROGRAMMING"}, []string{"tech-talk"}},
		{"type", models.RoomFilter{Type: models.RoomTypePrivate}, []string{"project-alpha"}},
		{"no match", models.RoomFilter{Search: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.ListRooms(tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %d rooms", tt.want, len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("rooms[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}

	alice := s.ListRooms(models.RoomFilter{ParticipantUserID: "1"})
	for _, r := range alice {
		if r.ID == "tech-talk" && r.UnreadCount != 2 {
			t.Errorf("tech-talk unread for Alice = %d, want 2", r.UnreadCount)
		}
	}
}

func TestSendMessage(t *testing.T) {
	s, clock := newSeededStore(t)

	clock.Advance(time.Minute)
	msg, pending, err := s.SendMessage("3", "general", "  hi all  ", "")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if pending {
		t.Error("no responder configured, nothing can be pending")
	}
	if msg.Content != "hi all" || msg.SenderName != "Carol Davis" || msg.RoomID != "general" {
		t.Errorf("unexpected message %+v", msg)
	}
	if msg.Type != models.MessageTypeText || msg.Reactions == nil || !msg.Timestamp.Equal(clock.Now()) {
		t.Errorf("unexpected defaults %+v", msg)
	}

	room, _ := s.GetRoom("general", "1")
	if room.LastMessage == nil || room.LastMessage.ID != msg.ID {
		t.Errorf("last message not updated: %+v", room.LastMessage)
	}
	if room.UnreadCount != 1 {
		t.Errorf("unread for Alice = %d, want 1", room.UnreadCount)
	}
	if own, _ := s.GetRoom("general", "3"); own.UnreadCount != 0 {
		t.Errorf("author must not count own message, got %d", own.UnreadCount)
	}

	if rooms := s.ListRooms(models.RoomFilter{}); rooms[0].ID != "general" {
		t.Errorf("room with newest message must come first, got %s", rooms[0].ID)
	}

	tests := []struct {
		name    string
		sender  string
		room    string
		content string
		kind    error
	}{
		{"max length", "1", "general", strings.Repeat("a", 2000), nil},
		{"too long", "1", "general", strings.Repeat("a", 2001), models.ErrValidation},
		{"whitespace", "1", "general", " \n\t ", models.ErrValidation},
		{"unknown room", "1", "nope", "hi", models.ErrNotFound},
		{"unknown sender", "ghost", "general", "hi", models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.SendMessage(tt.sender, tt.room, tt.content, "")
			if tt.kind == nil {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("error = %v, want %v", err, tt.kind)
			}
		})
	}

	if _, _, err := s.SendMessage("1", "general", "hi", "video"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation error for type, got %v", err)
	}
}

func TestSendClearsTyping(t *testing.T) {
	s, _ := newSeededStore(t)

	if _, err := s.StartTyping("1", "", "general"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.SendMessage("1", "general", "done typing", ""); err != nil {
		t.Fatal(err)
	}
	if got := s.TypingUsers("general", ""); len(got) != 0 {
		t.Errorf("typing marker not cleared: %+v", got)
	}
}

func TestListMessages(t *testing.T) {
	s, _ := newSeededStore(t)

	page := s.ListMessages("general", 2, 0)
	if len(page.Messages) != 2 || page.Total != 5 || !page.HasMore {
		t.Errorf("offset 0: got %d messages, total %d, hasMore %v", len(page.Messages), page.Total, page.HasMore)
	}
	if page.Messages[0].ID != "msg1" {
		t.Errorf("expected oldest first, got %s", page.Messages[0].ID)
	}

	page = s.ListMessages("general", 2, 4)
	if len(page.Messages) != 1 || page.HasMore {
		t.Errorf("offset 4: got %d messages, hasMore %v", len(page.Messages), page.HasMore)
	}

	page = s.ListMessages("general", math.MaxInt, 1)
	if len(page.Messages) != 4 || page.HasMore {
		t.Errorf("huge limit: got %d messages, hasMore %v", len(page.Messages), page.HasMore)
	}

	page = s.ListMessages("general", 10, math.MaxInt)
	if len(page.Messages) != 0 || page.HasMore || page.Total != 5 {
		t.Errorf("huge offset: got %d messages, total %d, hasMore %v", len(page.Messages), page.Total, page.HasMore)
	}

	page = s.ListMessages("missing", 10, 0)
	if page.Messages == nil || len(page.Messages) != 0 || page.Total != 0 {
		t.Errorf("unknown room must give an empty page, got %+v", page)
	}
}

func TestToggleReaction(t *testing.T) {
	s, _ := newSeededStore(t)

	before := s.ListMessages("general", 1, 0).Messages[0].Reactions

	result, msg, err := s.ToggleReaction("msg1", "general", "🔥", "3", "", "")
	if err != nil {
		t.Fatalf("ToggleReaction() error = %v", err)
	}
	if result != models.ReactionAdded || len(msg.Reactions) != len(before)+1 {
		t.Errorf("first toggle: result %s, %d reactions", result, len(msg.Reactions))
	}
	if msg.Reactions[len(msg.Reactions)-1].UserName != "Carol Davis" {
		t.Errorf("user name not filled in: %+v", msg.Reactions)
	}

	result, msg, err = s.ToggleReaction("msg1", "general", "🔥", "3", "Carol Davis", models.ReactionToggle)
	if err != nil {
		t.Fatal(err)
	}
	if result != models.ReactionRemoved || len(msg.Reactions) != len(before) {
		t.Errorf("second toggle: result %s, %d reactions", result, len(msg.Reactions))
	}
	for i := range before {
		if msg.Reactions[i] != before[i] {
			t.Errorf("reaction %d changed: %+v -> %+v", i, before[i], msg.Reactions[i])
		}
	}

	if _, _, err := s.ToggleReaction("msg1", "nope", "🔥", "3", "", ""); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected room not found, got %v", err)
	}
	if _, _, err := s.ToggleReaction("msg99", "general", "🔥", "3", "", ""); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected message not found, got %v", err)
	}
	if _, _, err := s.ToggleReaction("msg1", "general", "🔥", "3", "", "flip"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestTyping(t *testing.T) {
	s, clock := newSeededStore(t)

	s.StartTyping("1", "Alice Johnson", "general")
	clock.Advance(time.Second)
	s.StartTyping("1", "Alice Johnson", "general")
	s.StartTyping("2", "", "general")

	got := s.TypingUsers("general", "")
	if len(got) != 2 {
		t.Fatalf("expected 2 typing users, got %+v", got)
	}
	if got[1].UserName != "Bob Smith" {
		t.Errorf("user name not filled in: %+v", got[1])
	}
	if others := s.TypingUsers("general", "1"); len(others) != 1 || others[0].UserID != "2" {
		t.Errorf("exclusion failed: %+v", others)
	}

	clock.Advance(3*time.Second + time.Millisecond)
	if n := s.typing.Sweep(clock.Now()); n != 2 {
		t.Errorf("expected 2 expired markers, got %d", n)
	}
	if got := s.TypingUsers("general", ""); len(got) != 0 {
		t.Errorf("expected no typing users, got %+v", got)
	}

	s.StartTyping("1", "", "general")
	s.StopTyping("1", "general")
	if got := s.TypingUsers("general", ""); len(got) != 0 {
		t.Errorf("stop did not remove marker: %+v", got)
	}

	if _, err := s.StartTyping("1", "", "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestOpenRoomUnread(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	zoe := mustUser(t, s, "Zoe")
	yann := mustUser(t, s, "Yann")

	room, err := s.CreateRoom("Launch", "", "", zoe.ID, []string{yann.ID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.OpenRoom(zoe.ID, room.ID); err != nil {
		t.Fatalf("OpenRoom() error = %v", err)
	}

	msg, _, err := s.SendMessage(zoe.ID, room.ID, "ready?", "")
	if err != nil {
		t.Fatal(err)
	}

	forZoe, _ := s.GetRoom(room.ID, zoe.ID)
	if forZoe.LastMessage == nil || forZoe.LastMessage.ID != msg.ID || forZoe.LastMessage.Content != "ready?" {
		t.Errorf("cached last message = %+v", forZoe.LastMessage)
	}
	if forZoe.UnreadCount != 0 {
		t.Errorf("unread for Zoe = %d, want 0", forZoe.UnreadCount)
	}
	forYann, _ := s.GetRoom(room.ID, yann.ID)
	if forYann.UnreadCount == 0 {
		t.Error("Yann has not opened the room and must see it unread")
	}

	// Messages into the open room are not counted.
	if _, err := s.OpenRoom(yann.ID, room.ID); err != nil {
		t.Fatal(err)
	}
	s.SendMessage(zoe.ID, room.ID, "go!", "")
	if r, _ := s.GetRoom(room.ID, yann.ID); r.UnreadCount != 0 {
		t.Errorf("unread for Yann after open = %d, want 0", r.UnreadCount)
	}

	s.CloseRoom(yann.ID)
	s.SendMessage(zoe.ID, room.ID, "still there?", "")
	if r, _ := s.GetRoom(room.ID, yann.ID); r.UnreadCount != 1 {
		t.Errorf("unread for Yann after close = %d, want 1", r.UnreadCount)
	}
	if err := s.MarkRoomRead(yann.ID, room.ID); err != nil {
		t.Fatal(err)
	}
	if r, _ := s.GetRoom(room.ID, yann.ID); r.UnreadCount != 0 {
		t.Errorf("unread after mark read = %d", r.UnreadCount)
	}

	if _, err := s.OpenRoom("ghost", room.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found for unknown user, got %v", err)
	}
}

func alwaysReply(delay time.Duration) *autoreply.Responder {
	return autoreply.New(autoreply.Config{
		Probability: 1,
		MinDelay:    delay,
		MaxDelay:    delay,
		Responses:   []string{"Good point!"},
		Rand:        rand.New(rand.NewPCG(1, 2)),
	})
}

func TestAutoReplyDelivered(t *testing.T) {
	s, _ := newTestStore(t, Options{Responder: alwaysReply(10 * time.Millisecond)})
	zoe := mustUser(t, s, "Zoe")
	yann := mustUser(t, s, "Yann")
	room, _ := s.CreateRoom("Launch", "", "", zoe.ID, []string{yann.ID})

	_, pending, err := s.SendMessage(zoe.ID, room.ID, "anyone?", "")
	require.NoError(t, err)
	require.True(t, pending)

	require.Eventually(t, func() bool {
		return s.ListMessages(room.ID, 10, 0).Total == 3
	}, time.Second, 5*time.Millisecond)

	reply := s.ListMessages(room.ID, 10, 0).Messages[2]
	require.Equal(t, yann.ID, reply.SenderID)
	require.Equal(t, "Good point!", reply.Content)
	require.Equal(t, models.MessageTypeText, reply.Type)
	require.Zero(t, s.PendingReplies())

	got, err := s.GetRoom(room.ID, zoe.ID)
	require.NoError(t, err)
	require.Equal(t, reply.ID, got.LastMessage.ID)
	require.Equal(t, 1, got.UnreadCount)
}

func TestAutoReplyNobodyOnline(t *testing.T) {
	s, _ := newTestStore(t, Options{Responder: alwaysReply(time.Millisecond)})
	zoe := mustUser(t, s, "Zoe")
	room, _ := s.CreateRoom("Launch", "", "", zoe.ID, nil)

	_, pending, err := s.SendMessage(zoe.ID, room.ID, "hello?", "")
	require.NoError(t, err)
	require.True(t, pending)

	require.Eventually(t, func() bool { return s.PendingReplies() == 0 }, time.Second, 5*time.Millisecond)
	s.Close()
	require.Equal(t, 2, s.ListMessages(room.ID, 10, 0).Total)
}

func TestDeleteRoomCancelsReplies(t *testing.T) {
	s, _ := newTestStore(t, Options{Responder: alwaysReply(time.Hour)})
	zoe := mustUser(t, s, "Zoe")
	mustUser(t, s, "Yann")
	room, _ := s.CreateRoom("Launch", "", "", zoe.ID, nil)

	_, pending, err := s.SendMessage(zoe.ID, room.ID, "first", "")
	require.NoError(t, err)
	require.True(t, pending)
	s.SendMessage(zoe.ID, room.ID, "second", "")
	require.Equal(t, 2, s.PendingReplies())

	require.NoError(t, s.DeleteRoom(room.ID, zoe.ID))
	require.Zero(t, s.PendingReplies())
}

func TestAutoReplySkipsRecreatedRoom(t *testing.T) {
	s, _ := newTestStore(t, Options{Responder: alwaysReply(10 * time.Millisecond)})
	zoe := mustUser(t, s, "Zoe")
	mustUser(t, s, "Yann")
	created, _ := s.CreateRoom("Launch", "", "", zoe.ID, nil)

	s.mu.RLock()
	old := s.rooms[created.ID]
	s.mu.RUnlock()
	msg, err := s.RoomMessages(created.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteRoom(created.ID, zoe.ID))
	recreated, err := s.CreateRoom("Launch", "", "", zoe.ID, nil)
	require.NoError(t, err)
	require.Equal(t, created.ID, recreated.ID)

	// A reply armed for the deleted room must not land in its successor.
	s.mu.Lock()
	require.True(t, s.scheduleReply(old, msg[0]))
	s.mu.Unlock()

	require.Eventually(t, func() bool { return s.PendingReplies() == 0 }, time.Second, 5*time.Millisecond)
	s.Close() // waits for the fired task to return
	require.Equal(t, 1, s.ListMessages(recreated.ID, 10, 0).Total)
}

func TestCloseCancelsReplies(t *testing.T) {
	s, _ := newTestStore(t, Options{Responder: alwaysReply(time.Hour)})
	zoe := mustUser(t, s, "Zoe")
	room, _ := s.CreateRoom("Launch", "", "", zoe.ID, nil)

	s.SendMessage(zoe.ID, room.ID, "first", "")
	require.Equal(t, 1, s.PendingReplies())

	s.Close()
	require.Zero(t, s.PendingReplies())

	_, pending, err := s.SendMessage(zoe.ID, room.ID, "after close", "")
	require.NoError(t, err)
	require.False(t, pending)
}

func TestConcurrentSends(t *testing.T) {
	s, _ := newSeededStore(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sender := []string{"1", "2", "3", "4", "5"}[i%5]
			if _, _, err := s.SendMessage(sender, "general", "parallel", ""); err != nil {
				t.Errorf("SendMessage() error = %v", err)
			}
			s.ToggleReaction("msg1", "general", "👍", sender, "", models.ReactionAdd)
			s.ListRooms(models.RoomFilter{ParticipantUserID: sender})
		}()
	}
	wg.Wait()

	if total := s.ListMessages("general", 1, 0).Total; total != 25 {
		t.Errorf("expected 25 messages, got %d", total)
	}
}
