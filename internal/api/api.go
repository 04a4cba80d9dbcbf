package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"parlor/internal/models"
	"parlor/internal/store"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"

	maxBodyBytes = 1 << 20
)

type API struct {
	store *store.Store
	log   *slog.Logger

	now func() time.Time
	loc *time.Location
}

func New(store *store.Store, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		store: store,
		log:   logger,
		now:   time.Now,
		loc:   time.Local,
	}
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// respond encodes v as JSON, or as MessagePack when the client asks for it.
func (a *API) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeResponse(w, r, status, v); err != nil {
		a.log.Warn("failed to encode response", "path", r.URL.Path, "error", err)
	}
}

// writeResponse negotiates the body encoding from the Accept header.
// MessagePack bodies use the JSON field names.
func writeResponse(w http.ResponseWriter, r *http.Request, status int, v any) error {
	if strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack) {
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return enc.Encode(v)
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	a.respond(w, r, status, ErrorResponse{Success: false, Error: message})
}

// failWith maps a store error to a status code. Unexpected errors are logged
// and reported with a generic message.
func (a *API) failWith(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	}

	var typed *models.Error
	if status == http.StatusInternalServerError || !errors.As(err, &typed) {
		a.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		a.fail(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	a.fail(w, r, status, typed.Message)
}

// decode reads a JSON request body into v, writing a 400 response on failure.
func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.fail(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// intParam parses an optional non-negative integer query parameter.
func intParam(r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
