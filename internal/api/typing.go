package api

import (
	"net/http"

	"parlor/internal/models"
)

type TypingRequest struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	RoomID   string `json:"roomId"`
}

type TypingResponse struct {
	Success    bool              `json:"success"`
	TypingUser models.TypingUser `json:"typingUser"`
}

type TypingUsersResponse struct {
	TypingUsers []models.TypingUser `json:"typingUsers"`
}

func (a *API) StartTypingHandler(w http.ResponseWriter, r *http.Request) {
	var req TypingRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.RoomID == "" {
		a.fail(w, r, http.StatusBadRequest, "Missing required fields: userId, roomId")
		return
	}

	entry, err := a.store.StartTyping(req.UserID, req.UserName, req.RoomID)
	if err != nil {
		a.failWith(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, TypingResponse{Success: true, TypingUser: entry})
}

func (a *API) StopTypingHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	roomID := r.URL.Query().Get("roomId")
	if userID == "" || roomID == "" {
		a.fail(w, r, http.StatusBadRequest, "Missing required parameters: userId, roomId")
		return
	}

	a.store.StopTyping(userID, roomID)
	a.respond(w, r, http.StatusOK, StatusResponse{Success: true})
}

func (a *API) TypingUsersHandler(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		a.fail(w, r, http.StatusBadRequest, "Room ID is required")
		return
	}
	a.respond(w, r, http.StatusOK, TypingUsersResponse{
		TypingUsers: a.store.TypingUsers(roomID, r.URL.Query().Get("userId")),
	})
}
