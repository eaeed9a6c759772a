// package formatter renders rooms and room queues as plain text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/room"
	"github.com/desertthunder/colisten/internal/shared"
)

// Format is an output format name.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts text, txt, markdown, md, csv and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension used when writing f.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// Queue is a room with its reduced state and whatever metadata is known for its entries.
type Queue struct {
	Room  *models.Room
	State room.State
	Meta  map[string]*models.TrackMetadata
}

type queueEntry struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Artists  string `json:"artists,omitempty"`
	Duration string `json:"duration,omitempty"`
	Current  bool   `json:"current"`
}

func (q Queue) entries() []queueEntry {
	current := q.State.Current()
	out := make([]queueEntry, 0, len(q.State.Playlist))
	for i, id := range q.State.Playlist {
		e := queueEntry{Position: i + 1, ID: id, Current: id == current}
		if meta := q.Meta[id]; meta != nil {
			e.Name = meta.Name
			e.Artists = meta.Artists
			if meta.DurationMs > 0 {
				e.Duration = shared.FormatDuration(meta.DurationMs)
			}
		}
		out = append(out, e)
	}
	return out
}

func (e queueEntry) label() string {
	switch {
	case e.Name != "" && e.Artists != "":
		return fmt.Sprintf("%s - %s", e.Artists, e.Name)
	case e.Name != "":
		return e.Name
	default:
		return e.ID
	}
}

// RoomsToText lists rooms one per line.
func RoomsToText(rooms []*models.Room) []byte {
	var buf bytes.Buffer
	if len(rooms) == 0 {
		buf.WriteString("No rooms\n")
		return buf.Bytes()
	}
	for _, r := range rooms {
		fmt.Fprintf(&buf, "%s  %-8s %-7s %s\n", r.JoinCode(), r.Mode(), r.CreatedAt().Format(time.DateOnly), r.Name())
	}
	return buf.Bytes()
}

// RoomsToMarkdown renders rooms as a Markdown table.
func RoomsToMarkdown(rooms []*models.Room) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Rooms\n\n")
	buf.WriteString("| Name | Mode | Code | Created |\n")
	buf.WriteString("|---|---|---|---|\n")
	for _, r := range rooms {
		fmt.Fprintf(&buf, "| %s | %s | `%s` | %s |\n", escapeCell(r.Name()), r.Mode(), r.JoinCode(), r.CreatedAt().Format(time.DateOnly))
	}
	return buf.Bytes()
}

// RoomsToCSV writes columns ID, Name, Mode, JoinCode, OwnerID, CreatedAt.
func RoomsToCSV(rooms []*models.Room) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Mode", "JoinCode", "OwnerID", "CreatedAt"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range rooms {
		record := []string{r.ID(), r.Name(), string(r.Mode()), r.JoinCode(), r.OwnerID(), r.CreatedAt().Format(time.RFC3339)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatRooms renders rooms in f.
func FormatRooms(rooms []*models.Room, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return RoomsToMarkdown(rooms), nil
	case FormatCSV:
		return RoomsToCSV(rooms)
	case FormatJSON:
		if rooms == nil {
			rooms = []*models.Room{}
		}
		return ToJSON(rooms)
	default:
		return RoomsToText(rooms), nil
	}
}

// QueueToText renders the now playing item followed by the numbered queue.
func QueueToText(q Queue) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Room: %s (%s)\n", q.Room.Name(), q.Room.Mode())
	fmt.Fprintf(&buf, "Code: %s\n", q.Room.JoinCode())

	entries := q.entries()
	if current := q.State.Current(); current == "" {
		buf.WriteString("Now playing: nothing\n")
	} else {
		label := current
		for _, e := range entries {
			if e.Current {
				label = e.label()
			}
		}
		fmt.Fprintf(&buf, "Now playing: %s", label)
		if q.State.Time != nil {
			fmt.Fprintf(&buf, " @ %s", shared.FormatDuration(int(*q.State.Time*1000)))
		}
		buf.WriteByte('\n')
	}

	fmt.Fprintf(&buf, "Queue: %d\n\n", len(entries))
	for _, e := range entries {
		marker := " "
		if e.Current {
			marker = ">"
		}
		fmt.Fprintf(&buf, "%s %d. %s\n", marker, e.Position, e.label())
	}
	return buf.Bytes()
}

// QueueToMarkdown renders the queue as a Markdown document with links to each entry.
func QueueToMarkdown(q Queue) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", q.Room.Name())
	fmt.Fprintf(&buf, "**Mode**: %s\n", q.Room.Mode())
	fmt.Fprintf(&buf, "**Join code**: `%s`\n\n", q.Room.JoinCode())

	if current := q.State.Current(); current != "" {
		if meta := q.Meta[current]; meta != nil && meta.ImageURL() != "" {
			fmt.Fprintf(&buf, "![Now playing](%s)\n\n", meta.ImageURL())
		}
	}

	buf.WriteString("## Queue\n\n")
	for _, e := range q.entries() {
		line := fmt.Sprintf("[%s](%s)", e.label(), entryURL(q.Room.Mode(), e.ID))
		if e.Duration != "" {
			line += fmt.Sprintf(" [%s]", e.Duration)
		}
		if e.Current {
			line = "**" + line + "** (now playing)"
		}
		fmt.Fprintf(&buf, "%d. %s\n", e.Position, line)
	}
	return buf.Bytes()
}

// QueueToCSV writes columns Position, ID, Name, Artists, Duration, Current.
func QueueToCSV(q Queue) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "ID", "Name", "Artists", "Duration", "Current"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, e := range q.entries() {
		record := []string{fmt.Sprint(e.Position), e.ID, e.Name, e.Artists, e.Duration, fmt.Sprint(e.Current)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatQueue renders q in f.
func FormatQueue(q Queue, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return QueueToMarkdown(q), nil
	case FormatCSV:
		return QueueToCSV(q)
	case FormatJSON:
		return ToJSON(struct {
			Room  *models.Room `json:"room"`
			State room.State   `json:"state"`
			Queue []queueEntry `json:"queue"`
		}{q.Room, q.State.Clone(), q.entries()})
	default:
		return QueueToText(q), nil
	}
}

// ToJSON indents v with two spaces and a trailing newline.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteQueueExport writes q to path in f. An empty path defaults to {join code}_queue{ext}.
func WriteQueueExport(q Queue, f Format, path string) (string, error) {
	if path == "" {
		path = q.Room.JoinCode() + "_queue" + f.Extension()
	}

	data, err := FormatQueue(q, f)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

func entryURL(mode models.RoomMode, id string) string {
	if mode == models.ModeYouTube {
		return "https://www.youtube.com/watch?v=" + id
	}
	parts := strings.Split(id, ":")
	if len(parts) == 3 && parts[0] == "spotify" {
		return fmt.Sprintf("https://open.spotify.com/%s/%s", parts[1], parts[2])
	}
	return id
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
