// Package handlers is the HTTP adapter around the lobby and ledger cores.
// Handlers stay thin: decode, authenticate, call the core, encode. All
// game rules live below this package.
package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tonroll/tonroll/internal/ledger"
	"github.com/tonroll/tonroll/internal/lobby"
)

// Server bundles the core services the handlers operate on.
type Server struct {
	Logger  *logrus.Logger
	Lobbies *lobby.Manager
	Wallet  *ledger.Ledger
}

func NewServer(logger *logrus.Logger, lobbies *lobby.Manager, wallet *ledger.Ledger) *Server {
	return &Server{Logger: logger, Lobbies: lobbies, Wallet: wallet}
}

// Routes mounts every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.Health)
	mux.HandleFunc("POST /session/guest", s.GuestSession)

	mux.HandleFunc("GET /lobbies", s.ListLobbies)
	mux.HandleFunc("POST /lobbies", s.CreateLobby)
	mux.HandleFunc("GET /lobbies/{id}", s.GetLobby)
	mux.HandleFunc("GET /lobbies/{id}/ws", s.WatchLobby)
	mux.HandleFunc("POST /lobbies/{id}/join", s.JoinLobby)
	mux.HandleFunc("POST /lobbies/{id}/leave", s.LeaveLobby)
	mux.HandleFunc("POST /lobbies/{id}/ready", s.SetReady)
	mux.HandleFunc("POST /lobbies/{id}/start", s.StartGame)
	mux.HandleFunc("POST /lobbies/{id}/cancel", s.CancelLobby)

	mux.HandleFunc("GET /wallet/state", s.WalletState)
	mux.HandleFunc("POST /wallet/deposit", s.Deposit)
	mux.HandleFunc("POST /wallet/withdraw", s.Withdraw)

	return mux
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
