package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"parlor/internal/api"
	"parlor/internal/models"
)

// Client talks to the chat API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) ListUsers(status string) (api.UsersResponse, error) {
	var resp api.UsersResponse
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	err := c.do(http.MethodGet, "/api/users", q, nil, &resp)
	return resp, err
}

func (c *Client) AddUser(req api.CreateUserRequest) (models.User, error) {
	var resp api.UserResponse
	err := c.do(http.MethodPost, "/api/users", nil, req, &resp)
	return resp.User, err
}

func (c *Client) ListRooms(userID string) (api.RoomsResponse, error) {
	var resp api.RoomsResponse
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	err := c.do(http.MethodGet, "/api/rooms", q, nil, &resp)
	return resp, err
}

func (c *Client) CreateRoom(req api.CreateRoomRequest) (models.ChatRoom, error) {
	var resp api.RoomResponse
	err := c.do(http.MethodPost, "/api/rooms", nil, req, &resp)
	return resp.Room, err
}

func (c *Client) Send(req api.SendMessageRequest) (api.SendMessageResponse, error) {
	var resp api.SendMessageResponse
	err := c.do(http.MethodPost, "/api/messages", nil, req, &resp)
	return resp, err
}

func (c *Client) Messages(roomID string, limit, offset int) (models.MessagePage, error) {
	var page models.MessagePage
	q := url.Values{}
	q.Set("roomId", roomID)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	err := c.do(http.MethodGet, "/api/messages", q, nil, &page)
	return page, err
}

func (c *Client) do(method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call API: %w. Is the server running?", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
