package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/colisten/internal/identifiers"
	"github.com/desertthunder/colisten/internal/playback"
	"github.com/desertthunder/colisten/internal/services"
	"github.com/desertthunder/colisten/internal/shared"
)

const callbackPath = "/api/spotify/callback"

// redirectURI picks the OAuth callback: configured redirect_uri, then base_url, then the request host.
func (a *App) redirectURI(r *http.Request) string {
	if uri := a.config.Credentials.Spotify.RedirectURI; uri != "" {
		return uri
	}
	if base := strings.TrimSuffix(a.config.Server.BaseURL, "/"); base != "" {
		return base + callbackPath
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + callbackPath
}

func (a *App) spotifyLogin(w http.ResponseWriter, r *http.Request) {
	if !a.spotify.Configured() {
		a.writeError(w, r, fmt.Errorf("%w: Spotify client id", shared.ErrMissingConfig))
		return
	}

	state := shared.GenerateID()
	a.setCookie(w, spotifyStateCookie, state, stateCookieMaxAge)
	http.Redirect(w, r, a.spotify.AuthURL(state, a.redirectURI(r)), http.StatusFound)
}

func (a *App) spotifyCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	if code == "" {
		msg := "Missing code"
		if e := query.Get("error"); e != "" {
			msg += ": " + e
		}
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	state := query.Get("state")
	if expected := cookieValue(r, spotifyStateCookie); state == "" || state != expected {
		writeMessage(w, http.StatusBadRequest, "State mismatch")
		return
	}
	a.setCookie(w, spotifyStateCookie, "", -1)

	token, err := a.spotify.Exchange(r.Context(), code, a.redirectURI(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var maxAge time.Duration
	if !token.Expiry.IsZero() {
		maxAge = time.Until(token.Expiry)
	}
	a.setCookie(w, spotifyAccessCookie, token.AccessToken, maxAge)
	if token.RefreshToken != "" {
		a.setCookie(w, spotifyRefreshCookie, token.RefreshToken, userCookieMaxAge)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) spotifyToken(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, spotifyAccessCookie)
	if token == "" {
		writeMessage(w, http.StatusUnauthorized, "No token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

type playRequest struct {
	DeviceID   string `json:"deviceId"`
	URI        string `json:"uri"`
	PositionMs int    `json:"positionMs"`
}

// spotifyPlay starts uri on the caller's device. The token check comes before reading the body.
func (a *App) spotifyPlay(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, spotifyAccessCookie)
	if token == "" {
		writeMessage(w, http.StatusUnauthorized, "No token")
		return
	}

	var req playRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.DeviceID == "" || strings.TrimSpace(req.URI) == "" {
		writeMessage(w, http.StatusBadRequest, "Missing deviceId or uri")
		return
	}

	adapter := playback.NewSpotifyAdapter(a.spotify.WithAccessToken(token), a.logger)
	cmd := playback.Command{Target: req.URI, OffsetMs: req.PositionMs, DeviceID: req.DeviceID}
	if err := adapter.Load(r.Context(), cmd); err != nil {
		a.writeUpstreamError(w, r, err, "Playback failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *App) spotifyTrack(w http.ResponseWriter, r *http.Request) {
	uri := strings.TrimSpace(r.URL.Query().Get("uri"))
	if uri == "" {
		writeMessage(w, http.StatusBadRequest, "Missing uri")
		return
	}
	token := cookieValue(r, spotifyAccessCookie)
	if token == "" {
		writeMessage(w, http.StatusUnauthorized, "No token")
		return
	}

	var svc services.Service = a.spotify.WithAccessToken(token)
	if a.cache != nil {
		svc = services.NewCachedService(svc, a.cache, "spotify", a.logger)
	}

	meta, err := svc.Metadata(r.Context(), identifiers.NormalizeSpotify(uri))
	if err != nil {
		a.writeUpstreamError(w, r, err, "Failed to fetch")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}
