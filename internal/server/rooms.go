package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
)

type createRoomRequest struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

func (a *App) createRoom(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req createRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeMessage(w, http.StatusBadRequest, "Room name is required")
		return
	}
	mode, err := models.ParseRoomMode(req.Mode)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	room := models.NewRoom(0, name, mode, user.ID())
	if err := a.rooms.Create(room); err != nil {
		a.writeError(w, r, err)
		return
	}

	a.logger.Info("room created", "room", room.ID(), "mode", mode, "owner", user.ID())
	writeJSON(w, http.StatusCreated, room)
}

func (a *App) listRooms(w http.ResponseWriter, r *http.Request, user *models.User) {
	rooms, err := a.rooms.ListByOwner(user.ID())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []*models.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

type joinRoomRequest struct {
	Code string `json:"code"`
}

func (a *App) joinRoom(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req joinRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	room, err := a.rooms.GetByJoinCode(req.Code)
	if errors.Is(err, shared.ErrRoomNotFound) {
		writeMessage(w, http.StatusNotFound, "Room not found")
		return
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": room.ID()})
}

// lookupRoom loads the {id} path room, writing a 404 when it does not exist.
func (a *App) lookupRoom(w http.ResponseWriter, r *http.Request) (*models.Room, bool) {
	room, err := a.rooms.Get(r.PathValue("id"))
	if errors.Is(err, shared.ErrRoomNotFound) {
		writeMessage(w, http.StatusNotFound, "Room not found")
		return nil, false
	}
	if err != nil {
		a.writeError(w, r, err)
		return nil, false
	}
	return room, true
}

func (a *App) getRoom(w http.ResponseWriter, r *http.Request) {
	if room, ok := a.lookupRoom(w, r); ok {
		writeJSON(w, http.StatusOK, room)
	}
}

func (a *App) roomState(w http.ResponseWriter, r *http.Request) {
	room, ok := a.lookupRoom(w, r)
	if !ok {
		return
	}
	state := a.pool.State(room.ID())
	if state.Mode == "" {
		state.Mode = room.Mode()
	}
	writeJSON(w, http.StatusOK, state)
}

// roomSocket upgrades to a websocket and serves the participant until it disconnects.
func (a *App) roomSocket(w http.ResponseWriter, r *http.Request) {
	room, ok := a.lookupRoom(w, r)
	if !ok {
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		if user, err := a.currentUser(r); err == nil {
			name = user.DisplayName()
		}
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "room", room.ID(), "error", err)
		return
	}

	a.logger.Debug("participant connected", "room", room.ID(), "name", name)
	if err := a.pool.Serve(r.Context(), room.ID(), name, conn); err != nil {
		a.logger.Error("participant failed", "room", room.ID(), "error", err)
		return
	}
	a.logger.Debug("participant disconnected", "room", room.ID(), "name", name)
}
