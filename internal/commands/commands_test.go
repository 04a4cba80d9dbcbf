package commands

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"parlor/internal/api"
	"parlor/internal/store"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := store.New(store.Options{})
	t.Cleanup(s.Close)
	a := api.New(s, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users", a.ListUsersHandler)
	mux.HandleFunc("POST /api/users", a.CreateUserHandler)
	mux.HandleFunc("GET /api/rooms", a.ListRoomsHandler)
	mux.HandleFunc("POST /api/rooms", a.CreateRoomHandler)
	mux.HandleFunc("GET /api/messages", a.ListMessagesHandler)
	mux.HandleFunc("POST /api/messages", a.SendMessageHandler)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func execute(t *testing.T, apiURL string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--api", apiURL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

var idLine = regexp.MustCompile(`ID:\s+(\S+)`)

func createdID(t *testing.T, out string) string {
	t.Helper()
	m := idLine.FindStringSubmatch(out)
	require.Len(t, m, 2, "no ID in output: %s", out)
	return m[1]
}

func TestCommands(t *testing.T) {
	ts := newTestServer(t)

	out, err := execute(t, ts.URL, "users", "add", "Zoe")
	require.NoError(t, err)
	require.Contains(t, out, "User created successfully!")
	zoe := createdID(t, out)

	out, err = execute(t, ts.URL, "users", "add", "Sam", "--status", "away")
	require.NoError(t, err)
	sam := createdID(t, out)

	out, err = execute(t, ts.URL, "users", "list")
	require.NoError(t, err)
	require.Contains(t, out, "Users (2 total, 1 online, 1 away, 0 offline)")

	out, err = execute(t, ts.URL, "rooms", "create", "Launch", "--creator", zoe, "--participant", sam)
	require.NoError(t, err)
	require.Contains(t, out, "Participants: 2")
	room := createdID(t, out)

	out, err = execute(t, ts.URL, "send", room, sam, "ready", "to", "ship?")
	require.NoError(t, err)
	require.Contains(t, out, "sent at")

	out, err = execute(t, ts.URL, "rooms", "list", "--user", zoe)
	require.NoError(t, err)
	require.Contains(t, out, "Launch")
	require.Contains(t, out, "1 unread")

	out, err = execute(t, ts.URL, "messages", room)
	require.NoError(t, err)
	require.Contains(t, out, `System: Zoe created the room "Launch"`)
	require.Contains(t, out, "Sam: ready to ship?")

	out, err = execute(t, ts.URL, "messages", room, "--limit", "1")
	require.NoError(t, err)
	require.Contains(t, out, "(1 of 2 shown")
}

func TestCommandErrors(t *testing.T) {
	ts := newTestServer(t)

	_, err := execute(t, ts.URL, "users", "add", "Zoe")
	require.NoError(t, err)

	_, err = execute(t, ts.URL, "users", "add", "zoe")
	require.ErrorContains(t, err, "A user with this name already exists (status 409)")

	_, err = execute(t, ts.URL, "rooms", "create", "Launch")
	require.ErrorContains(t, err, `required flag(s) "creator" not set`)

	_, err = execute(t, ts.URL, "rooms", "create", "Launch", "--creator", "nobody")
	require.ErrorContains(t, err, "Creator user not found")

	_, err = execute(t, ts.URL, "messages")
	require.Error(t, err)
}

func TestRoomsListEmpty(t *testing.T) {
	ts := newTestServer(t)

	out, err := execute(t, ts.URL, "rooms", "list")
	require.NoError(t, err)
	require.Contains(t, out, "No rooms found.")
}
