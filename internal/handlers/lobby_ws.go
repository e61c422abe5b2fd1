package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tonroll/tonroll/internal/lobby"
)

// snapshotInterval is how often a watched lobby is re-observed and pushed.
// Each push is also what drives the lazy countdown advance for watchers who
// never poll over plain HTTP.
const snapshotInterval = time.Second

// WatchLobby streams lobby snapshots over a websocket until the lobby
// reaches a terminal state or the client goes away.
func (s *Server) WatchLobby(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lobbyID(w, r)
	if !ok {
		return
	}

	// reject unknown lobbies before upgrading
	if _, err := s.Lobbies.Get(id); err != nil {
		s.writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.WithError(err).Warn("websocket accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	// CloseRead handles control frames and cancels the context when the
	// client closes the connection.
	ctx := c.CloseRead(r.Context())

	s.Logger.WithField("lobby", id).Info("lobby watch started")

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	var last *lobby.Snapshot
	for {
		snap, err := s.Lobbies.Get(id)
		if errors.Is(err, lobby.ErrNotFound) {
			// cancelled out from under the watcher
			c.Close(websocket.StatusNormalClosure, "lobby removed")
			return
		}
		if err != nil {
			s.Logger.WithError(err).WithField("lobby", id).Error("lobby watch read failed")
			c.Close(websocket.StatusInternalError, "")
			return
		}

		if last == nil || changed(*last, snap) {
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = wsjson.Write(writeCtx, c, snap)
			cancel()
			if err != nil {
				return
			}
			last = &snap
		}

		if snap.Status == lobby.StatusFinished {
			c.Close(websocket.StatusNormalClosure, "game finished")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// changed is a cheap dirty-check so idle lobbies aren't re-broadcast every
// tick.
func changed(a, b lobby.Snapshot) bool {
	if a.Status != b.Status || len(a.Players) != len(b.Players) {
		return true
	}
	for i := range a.Players {
		if a.Players[i] != b.Players[i] {
			return true
		}
	}
	return false
}
