package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tonroll/tonroll/internal/lobby"
)

// ListLobbies returns snapshots of current lobbies, optionally filtered by
// ?q= (name match), ?max_wager= and ?capacity=.
func (s *Server) ListLobbies(w http.ResponseWriter, r *http.Request) {
	var f lobby.Filter
	f.Query = r.URL.Query().Get("q")
	if raw := r.URL.Query().Get("max_wager"); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			badRequest(w, "invalid max_wager")
			return
		}
		f.MaxWager = &max
	}
	if raw := r.URL.Query().Get("capacity"); raw != "" {
		switch raw {
		case "2":
			f.Capacity = 2
		case "4":
			f.Capacity = 4
		default:
			badRequest(w, "invalid capacity")
			return
		}
	}

	snapshots := s.Lobbies.List(f)
	if snapshots == nil {
		snapshots = []lobby.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

type createLobbyRequest struct {
	DisplayName string          `json:"display_name"`
	Wager       decimal.Decimal `json:"wager"`
	Capacity    int             `json:"capacity"`
	Visibility  string          `json:"visibility"`
	Pin         string          `json:"pin"`
}

// CreateLobby opens a new lobby with the caller seated as creator.
func (s *Server) CreateLobby(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req createLobbyRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "bad lobby request payload")
		return
	}

	visibility := lobby.Visibility(req.Visibility)
	if visibility == "" {
		visibility = lobby.VisibilityPublic
	}

	snap, err := s.Lobbies.Create(userID, req.DisplayName, req.Wager, req.Capacity, visibility, req.Pin)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetLobby returns one lobby snapshot, advancing its countdown if due.
func (s *Server) GetLobby(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lobbyID(w, r)
	if !ok {
		return
	}
	snap, err := s.Lobbies.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// JoinLobby seats the caller.
func (s *Server) JoinLobby(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.lobbyID(w, r)
	if !ok {
		return
	}

	var req struct {
		DisplayName string `json:"display_name"`
		Pin         string `json:"pin"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "bad join request payload")
		return
	}

	snap, err := s.Lobbies.Join(id, userID, req.DisplayName, req.Pin)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// LeaveLobby removes the caller from the lobby.
func (s *Server) LeaveLobby(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.lobbyID(w, r)
	if !ok {
		return
	}

	snap, err := s.Lobbies.Leave(id, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SetReady toggles the caller's ready flag.
func (s *Server) SetReady(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.lobbyID(w, r)
	if !ok {
		return
	}

	snap, err := s.Lobbies.SetReady(id, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// StartGame runs the dice resolution for a lobby, creator only. The
// response snapshot carries the outcome.
func (s *Server) StartGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.lobbyID(w, r)
	if !ok {
		return
	}

	snap, err := s.Lobbies.Start(id, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// CancelLobby removes the lobby, creator only.
func (s *Server) CancelLobby(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.lobbyID(w, r)
	if !ok {
		return
	}

	if err := s.Lobbies.Cancel(id, userID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
