package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tonroll/tonroll/internal/auth"
	"github.com/tonroll/tonroll/internal/ledger"
	"github.com/tonroll/tonroll/internal/lobby"
)

// apiError is the wire shape of every error response: a short machine
// readable kind plus a human readable message. Internal details never leak.
type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps core sentinel errors onto the HTTP taxonomy.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := http.StatusInternalServerError, "internal_error"
	msg := err.Error()

	switch {
	case errors.Is(err, lobby.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, lobby.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, lobby.ErrInvalidWager),
		errors.Is(err, lobby.ErrInvalidCapacity),
		errors.Is(err, lobby.ErrInvalidPin),
		errors.Is(err, ledger.ErrInvalidAmount):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, lobby.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientFunds):
		status, kind = http.StatusConflict, "insufficient_funds"
	case errors.Is(err, lobby.ErrNotOpen),
		errors.Is(err, lobby.ErrFull),
		errors.Is(err, lobby.ErrWrongPin),
		errors.Is(err, lobby.ErrNotInLobby),
		errors.Is(err, lobby.ErrNotEnoughReady),
		errors.Is(err, lobby.ErrCreatorCannotLeave),
		errors.Is(err, lobby.ErrNotCancellable):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, auth.ErrInvalidToken):
		status, kind = http.StatusForbidden, "forbidden"
	default:
		// no internals on the wire
		s.Logger.WithError(err).Error("internal error")
		msg = "internal error"
	}

	writeJSON(w, status, map[string]apiError{"error": {Kind: kind, Message: msg}})
}

// requireUser authenticates the request from the auth_token cookie or a
// bearer token.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	token := ""
	if c, err := r.Cookie("auth_token"); err == nil {
		token = c.Value
	} else if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]apiError{
			"error": {Kind: "validation_error", Message: "missing auth token"},
		})
		return uuid.Nil, false
	}

	userID, err := auth.VerifyToken(token)
	if err != nil {
		s.writeError(w, err)
		return uuid.Nil, false
	}
	return userID, true
}

// lobbyID parses the {id} path segment.
func (s *Server) lobbyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]apiError{
			"error": {Kind: "validation_error", Message: "invalid lobby id"},
		})
		return 0, false
	}
	return id, true
}

// decodeBody decodes a JSON body, tolerating an empty one.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && err.Error() != "EOF" {
		return err
	}
	return nil
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]apiError{
		"error": {Kind: "validation_error", Message: msg},
	})
}
