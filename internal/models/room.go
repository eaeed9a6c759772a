package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RoomMode selects the playback source shared by a room.
type RoomMode string

const (
	ModeYouTube RoomMode = "youtube"
	ModeSpotify RoomMode = "spotify"
)

// ParseRoomMode validates s (case-insensitive). An empty string defaults to [ModeYouTube].
func ParseRoomMode(s string) (RoomMode, error) {
	switch RoomMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeYouTube:
		return ModeYouTube, nil
	case ModeSpotify:
		return ModeSpotify, nil
	default:
		return "", fmt.Errorf("unknown room mode %q", s)
	}
}

func (m RoomMode) Valid() bool { return m == ModeYouTube || m == ModeSpotify }

func (m RoomMode) String() string { return string(m) }

// Room is a persisted grouping of participants sharing playback and chat.
type Room struct {
	base
	name     string
	mode     RoomMode
	ownerID  string
	joinCode string
}

// NewRoom creates an unsaved room. The repository assigns the ID and join code.
func NewRoom(sequence int, name string, mode RoomMode, ownerID string) *Room {
	return &Room{
		base:    newBase(sequence),
		name:    strings.TrimSpace(name),
		mode:    mode,
		ownerID: ownerID,
	}
}

func (r *Room) Name() string            { return r.name }
func (r *Room) Mode() RoomMode          { return r.mode }
func (r *Room) OwnerID() string         { return r.ownerID }
func (r *Room) JoinCode() string        { return r.joinCode }
func (r *Room) SetJoinCode(code string) { r.joinCode = code }

// Validate checks required fields.
func (r *Room) Validate() error {
	if r.id == "" {
		return fmt.Errorf("room ID is required")
	}
	if r.name == "" {
		return fmt.Errorf("room name is required")
	}
	if !r.mode.Valid() {
		return fmt.Errorf("invalid room mode %q", r.mode)
	}
	if r.ownerID == "" {
		return fmt.Errorf("room owner is required")
	}
	if r.joinCode == "" {
		return fmt.Errorf("room join code is required")
	}
	return nil
}

type roomJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mode      RoomMode  `json:"mode"`
	OwnerID   string    `json:"owner_id"`
	JoinCode  string    `json:"join_code"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalJSON renders the room for API responses.
func (r *Room) MarshalJSON() ([]byte, error) {
	return json.Marshal(roomJSON{
		ID:        r.id,
		Name:      r.name,
		Mode:      r.mode,
		OwnerID:   r.ownerID,
		JoinCode:  r.joinCode,
		CreatedAt: r.createdAt,
	})
}

// UnmarshalJSON reads the API representation, used by CLI clients.
func (r *Room) UnmarshalJSON(data []byte) error {
	var v roomJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Room{
		base:     base{id: v.ID, createdAt: v.CreatedAt, updatedAt: v.CreatedAt},
		name:     v.Name,
		mode:     v.Mode,
		ownerID:  v.OwnerID,
		joinCode: v.JoinCode,
	}
	return nil
}
