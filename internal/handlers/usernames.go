package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/quickex/quickex-backend/internal/supabase"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 32

	maxUsernameBodyBytes = 1 << 20
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidationError describes why a request payload was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// CreateUsernameRequest is the accepted shape of POST /username.
type CreateUsernameRequest struct {
	Username string `json:"username"`
}

// CreateUsernameResponse is the body returned on success.
type CreateUsernameResponse struct {
	OK bool `json:"ok"`
}

// ValidateUsername checks length and character set. A nil return means the
// candidate is acceptable.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return &ValidationError{Field: "username", Message: "username should not be empty"}
	case len(username) < UsernameMinLen || len(username) > UsernameMaxLen:
		return &ValidationError{
			Field:   "username",
			Message: fmt.Sprintf("username must be between %d and %d characters", UsernameMinLen, UsernameMaxLen),
		}
	case !usernamePattern.MatchString(username):
		return &ValidationError{
			Field:   "username",
			Message: "username must contain only lowercase letters, numbers, and underscores",
		}
	}
	return nil
}

// DecodeCreateUsername reads a CreateUsernameRequest from body, rejecting
// anything other than a single JSON object whose only key is "username".
// Keys are matched exactly, so "Username" counts as an unknown field.
func DecodeCreateUsername(body io.Reader) (CreateUsernameRequest, error) {
	var req CreateUsernameRequest

	dec := json.NewDecoder(body)
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return req, &ValidationError{Message: "invalid JSON body"}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return req, &ValidationError{Message: "request body must contain a single JSON object"}
	}

	var unknown []string
	for k := range fields {
		if k != "username" {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return req, &ValidationError{
			Field:   unknown[0],
			Message: fmt.Sprintf("property %s should not exist", strings.Join(unknown, ", ")),
		}
	}

	raw, ok := fields["username"]
	if !ok || string(raw) == "null" {
		return req, &ValidationError{Field: "username", Message: "username is required"}
	}
	if err := json.Unmarshal(raw, &req.Username); err != nil {
		return req, &ValidationError{Field: "username", Message: "username must be a string"}
	}

	if err := ValidateUsername(req.Username); err != nil {
		return req, err
	}
	return req, nil
}

// RequireJSON rejects bodies whose Content-Type is not application/json.
// Parameters such as charset are allowed.
func RequireJSON(contentType string) error {
	if contentType == "" {
		return &ValidationError{Message: "Content-Type must be application/json"}
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return &ValidationError{Message: "Content-Type must be application/json"}
	}
	return nil
}

// UsernamesHandler accepts username registrations. It acknowledges valid
// candidates without storing them.
type UsernamesHandler struct {
	// store is injected for the persistence step; the stub never queries it.
	store *supabase.Client
}

// NewUsernamesHandler creates a new UsernamesHandler.
func NewUsernamesHandler(store *supabase.Client) *UsernamesHandler {
	return &UsernamesHandler{store: store}
}

// Routes registers the username intake route on the given chi router.
func (h *UsernamesHandler) Routes(r chi.Router) {
	r.Post("/", h.CreateUsername)
}

// CreateUsername validates the payload and acknowledges it with 201.
func (h *UsernamesHandler) CreateUsername(w http.ResponseWriter, r *http.Request) {
	err := RequireJSON(r.Header.Get("Content-Type"))
	if err == nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxUsernameBodyBytes)
		_, err = DecodeCreateUsername(r.Body)
	}
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		log.Printf("usernames: decode: %v", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeJSON(w, http.StatusCreated, CreateUsernameResponse{OK: true})
}
