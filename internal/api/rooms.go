package api

import (
	"net/http"
	"time"

	"parlor/internal/models"
	"parlor/internal/view"
)

type CreateRoomRequest struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Type         models.RoomType `json:"type,omitempty"`
	CreatorID    string          `json:"creatorId"`
	Participants []string        `json:"participants,omitempty"`
}

// UpdateRoomRequest leaves fields that are absent from the body untouched.
type UpdateRoomRequest struct {
	RoomID       string    `json:"roomId"`
	UserID       string    `json:"userId"`
	Name         *string   `json:"name,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Participants *[]string `json:"participants,omitempty"`
}

type OpenRoomRequest struct {
	UserID string `json:"userId"`
}

type RoomsResponse struct {
	Rooms      []models.ChatRoom `json:"rooms"`
	TotalRooms int               `json:"totalRooms"`
}

type RoomResponse struct {
	Success bool            `json:"success"`
	Room    models.ChatRoom `json:"room"`
	Message string          `json:"message,omitempty"`
}

type TimelineResponse struct {
	Room models.ChatRoom    `json:"room"`
	Days []view.TimelineDay `json:"days"`
}

func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rooms := a.store.ListRooms(models.RoomFilter{
		ParticipantUserID: q.Get("userId"),
		Search:            q.Get("search"),
		Type:              models.RoomType(q.Get("type")),
	})
	a.respond(w, r, http.StatusOK, RoomsResponse{Rooms: rooms, TotalRooms: len(rooms)})
}

func (a *API) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Name == "" || req.CreatorID == "" {
		a.fail(w, r, http.StatusBadRequest, "Missing required fields: name, creatorId")
		return
	}

	room, err := a.store.CreateRoom(req.Name, req.Description, req.Type, req.CreatorID, req.Participants)
	if err != nil {
		a.failWith(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, RoomResponse{Success: true, Room: room, Message: "Room created successfully"})
}

func (a *API) UpdateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoomRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.RoomID == "" || req.UserID == "" {
		a.fail(w, r, http.StatusBadRequest, "Missing required fields: roomId, userId")
		return
	}

	room, err := a.store.UpdateRoom(req.RoomID, req.UserID, models.RoomUpdate{
		Name:         req.Name,
		Description:  req.Description,
		Participants: req.Participants,
	})
	if err != nil {
		a.failWith(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, RoomResponse{Success: true, Room: room, Message: "Room updated successfully"})
}

func (a *API) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	userID := r.URL.Query().Get("userId")
	if roomID == "" || userID == "" {
		a.fail(w, r, http.StatusBadRequest, "Missing required parameters: roomId, userId")
		return
	}

	if err := a.store.DeleteRoom(roomID, userID); err != nil {
		a.failWith(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, StatusResponse{Success: true, Message: "Room deleted successfully"})
}

// OpenRoomHandler makes the room the user's open room and resets its unread
// counter for that user.
func (a *API) OpenRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req OpenRoomRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		a.fail(w, r, http.StatusBadRequest, "User ID is required")
		return
	}

	room, err := a.store.OpenRoom(req.UserID, r.PathValue("id"))
	if err != nil {
		a.failWith(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, RoomResponse{Success: true, Room: room})
}

// TimelineHandler returns the room's messages grouped by day and annotated
// for display. Optional parameters: userId for the unread counter, search to
// filter messages and tz for the day boundaries.
func (a *API) TimelineHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := r.PathValue("id")

	loc := a.loc
	if tz := q.Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			a.fail(w, r, http.StatusBadRequest, "Invalid time zone")
			return
		}
		loc = l
	}

	room, err := a.store.GetRoom(roomID, q.Get("userId"))
	if err != nil {
		a.failWith(w, r, err)
		return
	}
	messages, err := a.store.RoomMessages(roomID)
	if err != nil {
		a.failWith(w, r, err)
		return
	}

	days, err := view.Timeline(view.SearchMessages(messages, q.Get("search")), a.now(), loc)
	if err != nil {
		a.failWith(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, TimelineResponse{Room: room, Days: days})
}
