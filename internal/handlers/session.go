package handlers

import (
	"net/http"

	"github.com/tonroll/tonroll/internal/auth"
)

// GuestSession mints a fresh user ID with a signed token. The token is set
// as a cookie and echoed in the body for non-browser clients (the chat bot).
func (s *Server) GuestSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "bad request payload")
		return
	}

	userID, token, err := auth.NewSession()
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":      userID.String(),
		"display_name": req.DisplayName,
		"token":        token,
	})
}
