package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"parlor/internal/api"
	"parlor/internal/models"

	"github.com/stretchr/testify/require"
)

const (
	testAPIAddr   = "127.0.0.1:8887"
	testAdminAddr = "127.0.0.1:8888"
)

func TestIntegration(t *testing.T) {
	t.Setenv("API_ADDR", testAPIAddr)
	t.Setenv("ADMIN_ADDR", testAdminAddr)
	t.Setenv("SEED", "false")
	t.Setenv("AUTO_REPLY_PROBABILITY", "0")
	t.Setenv("LOG_LEVEL", "warn")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := run(ctx); err != nil && err != context.Canceled {
			t.Errorf("Server error: %v", err)
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	apiURL := "http://" + testAPIAddr
	waitForServer(t, apiURL+"/healthz", 20)

	// Step 1: two users join.
	var zoe, sam api.UserResponse
	postJSON(t, apiURL+"/api/users", api.CreateUserRequest{Name: "Zoe"}, http.StatusOK, &zoe)
	postJSON(t, apiURL+"/api/users", api.CreateUserRequest{Name: "Sam"}, http.StatusOK, &sam)
	require.NotEqual(t, zoe.User.ID, sam.User.ID)
	require.Equal(t, models.UserStatusOnline, zoe.User.Status)

	// Duplicate names are rejected.
	var dup api.ErrorResponse
	postJSON(t, apiURL+"/api/users", api.CreateUserRequest{Name: "zoe"}, http.StatusConflict, &dup)
	require.False(t, dup.Success)

	// Step 2: Zoe creates a room with Sam.
	var created api.RoomResponse
	postJSON(t, apiURL+"/api/rooms", api.CreateRoomRequest{
		Name:         "Launch",
		Description:  "Release planning",
		CreatorID:    zoe.User.ID,
		Participants: []string{sam.User.ID},
	}, http.StatusOK, &created)
	roomID := created.Room.ID
	require.Len(t, created.Room.Participants, 2)

	// Step 3: Sam writes while Zoe is elsewhere.
	var sent api.SendMessageResponse
	postJSON(t, apiURL+"/api/messages", api.SendMessageRequest{
		Content:  "  ready to ship?  ",
		SenderID: sam.User.ID,
		RoomID:   roomID,
	}, http.StatusOK, &sent)
	require.Equal(t, "ready to ship?", sent.Message.Content)
	require.Equal(t, "Sam", sent.Message.SenderName)
	require.Nil(t, sent.AutoResponse)

	require.Equal(t, 1, unreadFor(t, apiURL, zoe.User.ID, roomID))
	require.Equal(t, 0, unreadFor(t, apiURL, sam.User.ID, roomID))

	// Step 4: opening the room clears the counter and keeps it clear.
	var opened api.RoomResponse
	postJSON(t, fmt.Sprintf("%s/api/rooms/%s/open", apiURL, roomID), api.OpenRoomRequest{UserID: zoe.User.ID}, http.StatusOK, &opened)
	require.Equal(t, 0, opened.Room.UnreadCount)

	postJSON(t, apiURL+"/api/messages", api.SendMessageRequest{
		Content:  "yes, **tonight**",
		SenderID: sam.User.ID,
		RoomID:   roomID,
	}, http.StatusOK, &sent)
	require.Equal(t, 0, unreadFor(t, apiURL, zoe.User.ID, roomID))

	// Step 5: Zoe reacts.
	var reacted api.ReactionResponse
	putJSON(t, apiURL+"/api/messages", api.ReactionRequest{
		MessageID: sent.Message.ID,
		RoomID:    roomID,
		Emoji:     "🚀",
		UserID:    zoe.User.ID,
	}, http.StatusOK, &reacted)
	require.Equal(t, models.ReactionAdded, reacted.Action)
	require.Len(t, reacted.Message.Reactions, 1)
	require.Equal(t, "Zoe", reacted.Message.Reactions[0].UserName)

	// Step 6: the timeline renders markdown.
	var timeline api.TimelineResponse
	getJSON(t, fmt.Sprintf("%s/api/rooms/%s/timeline?userId=%s", apiURL, roomID, zoe.User.ID), &timeline)
	require.Len(t, timeline.Days, 1)
	msgs := timeline.Days[0].Messages
	require.Len(t, msgs, 3) // system message plus two
	require.Contains(t, msgs[2].HTML, "<strong>tonight</strong>")

	// Step 7: the page view sees everything in order.
	var page models.MessagePage
	getJSON(t, fmt.Sprintf("%s/api/messages?roomId=%s", apiURL, roomID), &page)
	require.Equal(t, 3, page.Total)
	require.False(t, page.HasMore)
	require.Equal(t, models.MessageTypeSystem, page.Messages[0].Type)

	// Step 8: the admin listener exposes the counters.
	resp, err := http.Get("http://" + testAdminAddr + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `parlor_messages_total{kind="user"} 2`)
	require.Contains(t, string(body), `parlor_http_requests_total{code="409",method="POST",route="POST /api/users"} 1`)
}

func unreadFor(t *testing.T, apiURL, userID, roomID string) int {
	t.Helper()
	var rooms api.RoomsResponse
	getJSON(t, fmt.Sprintf("%s/api/rooms?userId=%s", apiURL, userID), &rooms)
	for _, room := range rooms.Rooms {
		if room.ID == roomID {
			return room.UnreadCount
		}
	}
	t.Fatalf("room %s not listed for %s", roomID, userID)
	return 0
}

func postJSON(t *testing.T, url string, body any, wantStatus int, out any) {
	t.Helper()
	sendJSON(t, http.MethodPost, url, body, out, wantStatus)
}

func putJSON(t *testing.T, url string, body any, wantStatus int, out any) {
	t.Helper()
	sendJSON(t, http.MethodPut, url, body, out, wantStatus)
}

func sendJSON(t *testing.T, method, url string, body, out any, wantStatus int) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, wantStatus, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func waitForServer(t *testing.T, urlStr string, retries int) {
	client := &http.Client{Timeout: 500 * time.Millisecond}

	for i := 0; i < retries; i++ {
		resp, err := client.Get(urlStr)
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("Server did not start at %s", urlStr)
}
