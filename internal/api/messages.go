package api

import (
	"net/http"

	"parlor/internal/chat"
	"parlor/internal/models"
)

type SendMessageRequest struct {
	Content  string             `json:"content"`
	SenderID string             `json:"senderId"`
	RoomID   string             `json:"roomId"`
	Type     models.MessageType `json:"type,omitempty"`
	// Sender name and avatar are accepted for compatibility but the stored
	// message always copies them from the user record.
	SenderName   string `json:"senderName,omitempty"`
	SenderAvatar string `json:"senderAvatar,omitempty"`
}

type SendMessageResponse struct {
	Success bool           `json:"success"`
	Message models.Message `json:"message"`
	// AutoResponse is "pending" when an automatic answer has been scheduled.
	AutoResponse *string `json:"autoResponse"`
}

type ReactionRequest struct {
	MessageID string                `json:"messageId"`
	RoomID    string                `json:"roomId"`
	Emoji     string                `json:"emoji"`
	UserID    string                `json:"userId"`
	UserName  string                `json:"userName,omitempty"`
	Action    models.ReactionAction `json:"action,omitempty"`
}

type ReactionResponse struct {
	Success bool                  `json:"success"`
	Message models.Message        `json:"message"`
	Action  models.ReactionResult `json:"action"`
}

func (a *API) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		a.fail(w, r, http.StatusBadRequest, "Room ID is required")
		return
	}
	limit, ok := intParam(r, "limit", chat.DefaultPageSize)
	if !ok {
		a.fail(w, r, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, ok := intParam(r, "offset", 0)
	if !ok {
		a.fail(w, r, http.StatusBadRequest, "Invalid offset")
		return
	}

	a.respond(w, r, http.StatusOK, a.store.ListMessages(roomID, limit, offset))
}

func (a *API) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Content == "" || req.SenderID == "" || req.RoomID == "" {
		a.fail(w, r, http.StatusBadRequest, "Missing required fields: content, senderId, roomId")
		return
	}

	msg, pending, err := a.store.SendMessage(req.SenderID, req.RoomID, req.Content, req.Type)
	if err != nil {
		a.failWith(w, r, err)
		return
	}

	resp := SendMessageResponse{Success: true, Message: msg}
	if pending {
		status := "pending"
		resp.AutoResponse = &status
	}
	a.respond(w, r, http.StatusOK, resp)
}

func (a *API) ReactionHandler(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.MessageID == "" || req.RoomID == "" || req.Emoji == "" || req.UserID == "" {
		a.fail(w, r, http.StatusBadRequest, "Missing required fields: messageId, roomId, emoji, userId")
		return
	}

	result, msg, err := a.store.ToggleReaction(req.MessageID, req.RoomID, req.Emoji, req.UserID, req.UserName, req.Action)
	if err != nil {
		a.failWith(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, ReactionResponse{Success: true, Message: msg, Action: result})
}
