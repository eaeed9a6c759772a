package server

import (
	"net/http"

	"github.com/desertthunder/colisten/internal/identifiers"
	"github.com/desertthunder/colisten/internal/services"
)

// youtubeVideo resolves oEmbed metadata for a video id or any supported YouTube link.
func (a *App) youtubeVideo(w http.ResponseWriter, r *http.Request) {
	id := identifiers.NormalizeYouTube(r.URL.Query().Get("id"))
	if id == "" {
		writeMessage(w, http.StatusBadRequest, "Missing id")
		return
	}
	if !identifiers.ValidYouTubeID(id) {
		writeMessage(w, http.StatusBadRequest, "Invalid video id")
		return
	}

	var svc services.Service = a.youtube
	if a.cache != nil {
		svc = services.NewCachedService(svc, a.cache, "youtube", a.logger)
	}

	meta, err := svc.Metadata(r.Context(), id)
	if err != nil {
		a.writeUpstreamError(w, r, err, "Failed to fetch")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}
