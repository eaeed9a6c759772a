package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
)

const (
	userCookie           = "colisten_user"
	spotifyStateCookie   = "spotify_auth_state"
	spotifyAccessCookie  = "spotify_access_token"
	spotifyRefreshCookie = "spotify_refresh_token"

	userCookieMaxAge  = 30 * 24 * time.Hour
	stateCookieMaxAge = 10 * time.Minute
)

// setCookie writes an HttpOnly, SameSite=Lax cookie scoped to the whole site.
// A zero maxAge makes a session cookie and a negative one deletes it.
func (a *App) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.config.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	switch {
	case maxAge < 0:
		c.MaxAge = -1
	case maxAge > 0:
		c.MaxAge = int(maxAge.Seconds())
	}
	http.SetCookie(w, c)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// currentUser resolves the colisten_user cookie.
func (a *App) currentUser(r *http.Request) (*models.User, error) {
	id := cookieValue(r, userCookie)
	if id == "" {
		return nil, shared.ErrNotAuthenticated
	}
	user, err := a.users.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	return user, nil
}

type userHandlerFunc func(w http.ResponseWriter, r *http.Request, user *models.User)

// requireUser answers 401 unless the request carries a known user.
func (a *App) requireUser(next userHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := a.currentUser(r)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Not signed in")
			return
		}
		next(w, r, user)
	}
}

type loginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeMessage(w, http.StatusBadRequest, "Missing email")
		return
	}

	user, err := a.users.GetOrCreate(req.Email, strings.TrimSpace(req.Name))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.setCookie(w, userCookie, user.ID(), userCookieMaxAge)
	writeJSON(w, http.StatusOK, user)
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	a.setCookie(w, userCookie, "", -1)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *App) me(w http.ResponseWriter, r *http.Request, user *models.User) {
	writeJSON(w, http.StatusOK, user)
}
