package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/colisten/internal/services"
	"github.com/desertthunder/colisten/internal/shared"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON encodes v with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMessage writes a plain text body.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

// statusFor maps an error category to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		return http.StatusInternalServerError
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrRoomNotFound), errors.Is(err, shared.ErrTrackNotFound),
		errors.Is(err, shared.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Upstream API failures are relayed with their own status and body.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	a.writeUpstreamError(w, r, err, "")
}

// writeUpstreamError is writeError with the body used when the upstream failure has none.
// An empty fallback uses the status text.
func (a *App) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if apiErr, ok := services.AsAPIError(err); ok {
		body := apiErr.Body
		if body == "" {
			body = fallback
		}
		if body == "" {
			body = http.StatusText(apiErr.StatusCode)
		}
		a.logger.Warn("upstream error", "path", r.URL.Path, "service", apiErr.Service, "status", apiErr.StatusCode)
		if json.Valid([]byte(body)) {
			w.Header().Set("Content-Type", "application/json")
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		w.WriteHeader(apiErr.StatusCode)
		_, _ = io.WriteString(w, body)
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		a.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeMessage(w, status, err.Error())
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed JSON body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}
