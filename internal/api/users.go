package api

import (
	"net/http"

	"parlor/internal/models"
)

type CreateUserRequest struct {
	Name   string            `json:"name"`
	Avatar string            `json:"avatar,omitempty"`
	Status models.UserStatus `json:"status,omitempty"`
}

type UpdateUserRequest struct {
	UserID string             `json:"userId"`
	Name   *string            `json:"name,omitempty"`
	Status *models.UserStatus `json:"status,omitempty"`
	Avatar *string            `json:"avatar,omitempty"`
}

type UsersResponse struct {
	Users      []models.User `json:"users"`
	TotalUsers int           `json:"totalUsers"`
	models.StatusCounts
}

type UserResponse struct {
	Success bool        `json:"success,omitempty"`
	User    models.User `json:"user"`
	Message string      `json:"message,omitempty"`
}

func (a *API) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, counts := a.store.ListUsers(models.UserFilter{
		Status: models.UserStatus(q.Get("status")),
		Search: q.Get("search"),
	})
	a.respond(w, r, http.StatusOK, UsersResponse{Users: users, TotalUsers: len(users), StatusCounts: counts})
}

func (a *API) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := a.store.GetUser(r.PathValue("id"))
	if err != nil {
		a.failWith(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, UserResponse{User: user})
}

func (a *API) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		a.fail(w, r, http.StatusBadRequest, "Name is required")
		return
	}

	user, err := a.store.CreateUser(req.Name, req.Avatar, req.Status)
	if err != nil {
		a.failWith(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, UserResponse{Success: true, User: user, Message: "User created successfully"})
}

func (a *API) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		a.fail(w, r, http.StatusBadRequest, "User ID is required")
		return
	}

	user, err := a.store.UpdateUser(req.UserID, models.UserUpdate{
		Name:   req.Name,
		Status: req.Status,
		Avatar: req.Avatar,
	})
	if err != nil {
		a.failWith(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, UserResponse{Success: true, User: user, Message: "User updated successfully"})
}

func (a *API) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		a.fail(w, r, http.StatusBadRequest, "User ID is required")
		return
	}

	if err := a.store.DeleteUser(userID); err != nil {
		a.failWith(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, StatusResponse{Success: true, Message: "User deleted successfully"})
}
