package ui

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/colisten/internal/identifiers"
	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/playback"
	"github.com/desertthunder/colisten/internal/room"
	"github.com/desertthunder/colisten/internal/shared"
)

// maxChat is the number of chat lines kept on screen.
const maxChat = 200

// Resolver looks up display metadata for a queued identifier.
type Resolver func(ctx context.Context, id string) (*models.TrackMetadata, error)

// Controller pauses and resumes the local Spotify device.
type Controller interface {
	Pause(ctx context.Context, deviceID string) error
	Resume(ctx context.Context, deviceID string) error
}

// Options configure a [Model]. Only Conn and Room are required.
type Options struct {
	Conn       Conn
	Room       *models.Room
	Name       string
	Player     *playback.Dispatcher
	DeviceID   string
	Controller Controller
	Resolver   Resolver
	Logger     *log.Logger
}

// Model is the room listener: it renders the reduced room state, the queue and chat,
// and drives the local player when the room switches tracks.
type Model struct {
	ctx        context.Context
	conn       Conn
	room       *models.Room
	name       string
	player     *playback.Dispatcher
	deviceID   string
	controller Controller
	resolver   Resolver
	logger     *log.Logger

	state    room.State
	started  time.Time // wall time at which playback position was zero
	paused   bool
	pausedAt time.Time
	chat     []models.Message
	meta     map[string]*models.TrackMetadata
	pending  map[string]bool
	status   string
	err      error

	width  int
	height int
	queue  list.Model
	input  textinput.Model
	help   help.Model
	keys   keyMap
	now    func() time.Time
}

// NewModel creates a room listener.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "Anonymous"
	}

	input := textinput.New()
	input.Placeholder = "chat, or /play <link>, /next, /sync, /pause"
	input.CharLimit = 500
	input.Focus()

	queue := list.New(nil, list.NewDefaultDelegate(), 32, 12)
	queue.Title = "Queue"
	queue.SetShowHelp(false)
	queue.SetFilteringEnabled(false)
	queue.SetShowStatusBar(false)

	return &Model{
		ctx:        ctx,
		conn:       opts.Conn,
		room:       opts.Room,
		name:       name,
		player:     opts.Player,
		deviceID:   opts.DeviceID,
		controller: opts.Controller,
		resolver:   opts.Resolver,
		logger:     opts.Logger,
		state:      room.State{Mode: opts.Room.Mode(), Playlist: []string{}},
		meta:       make(map[string]*models.TrackMetadata),
		pending:    make(map[string]bool),
		queue:      queue,
		input:      input,
		help:       help.New(),
		keys:       newKeyMap(),
		now:        time.Now,
	}
}

// State returns the reduced room state as this participant sees it.
func (m *Model) State() room.State { return m.state.Clone() }

// Err returns the error that ended the session, if any.
func (m *Model) Err() error { return m.err }

// Init starts listening for room events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.queue.SetSize(max(msg.Width/3, 24), max(msg.Height-8, 4))
		m.input.Width = max(msg.Width-6, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgEventReceived:
		cmd := m.receive(msg.data.(room.Event))
		return m, tea.Batch(cmd, m.waitForEvent())

	case MsgDisconnected:
		m.err = ErrDisconnected
		return m, tea.Quit

	case MsgSent:
		data := msg.data.(struct {
			kind room.Kind
			err  error
		})
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("%s not sent: %v", data.kind, data.err))
		}
		return m, nil

	case MsgLoaded:
		data := msg.data.(struct {
			target string
			err    error
		})
		if data.err != nil {
			m.status = styles.warn.Render(fmt.Sprintf("player: %v", data.err))
		}
		return m, nil

	case MsgResolved:
		data := msg.data.(struct {
			id   string
			meta *models.TrackMetadata
			err  error
		})
		delete(m.pending, data.id)
		if data.err != nil {
			m.logger.Debug("metadata lookup failed", "id", data.id, "error", data.err)
			return m, nil
		}
		m.meta[data.id] = data.meta
		m.refreshQueue()
		return m, nil

	case MsgTick:
		return m, m.tick()
	}
	return m, nil
}

// receive folds e into the local state and reacts to what changed.
func (m *Model) receive(e room.Event) tea.Cmd {
	m.state = m.state.Apply(e)

	var cmds []tea.Cmd
	switch ev := e.(type) {
	case room.Play, room.PlaySpotify:
		m.resetClock(m.state.Time)
		m.paused = false
		cmds = append(cmds, m.load())
	case room.Snapshot:
		m.resetClock(m.state.Time)
		m.paused = false
		if !m.state.IsZero() {
			cmds = append(cmds, m.load())
		}
	case room.SyncTime:
		m.resetClock(m.state.Time)
	case room.Chat:
		m.chat = append(m.chat, models.Message{Name: ev.Name, Message: ev.Message})
		if len(m.chat) > maxChat {
			m.chat = slices.Clone(m.chat[len(m.chat)-maxChat:])
		}
	case room.SpotifyPause:
		if !m.paused {
			m.paused = true
			m.pausedAt = m.now()
		}
		cmds = append(cmds, m.control(true))
	case room.SpotifyResume:
		if m.paused {
			m.started = m.started.Add(m.now().Sub(m.pausedAt))
			m.paused = false
		}
		cmds = append(cmds, m.control(false))
	}

	m.refreshQueue()
	cmds = append(cmds, m.resolveQueue()...)
	return tea.Batch(cmds...)
}

func (m *Model) resetClock(t *float64) {
	offset := time.Duration(0)
	if t != nil && *t > 0 {
		offset = time.Duration(*t * float64(time.Second))
	}
	m.started = m.now().Add(-offset)
	m.pausedAt = m.now()
}

// Position is the estimated playback position in seconds.
func (m *Model) Position() float64 {
	if m.started.IsZero() || m.state.Current() == "" {
		return 0
	}
	if m.paused {
		return m.pausedAt.Sub(m.started).Seconds()
	}
	return m.now().Sub(m.started).Seconds()
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		return m, m.step(1)
	case key.Matches(msg, m.keys.prev):
		return m, m.step(-1)
	case key.Matches(msg, m.keys.sync):
		return m, m.send(room.SyncTime{Time: m.Position()})
	case key.Matches(msg, m.keys.pause):
		return m, m.togglePause()
	case key.Matches(msg, m.keys.up), key.Matches(msg, m.keys.down):
		var cmd tea.Cmd
		m.queue, cmd = m.queue.Update(msg)
		return m, cmd
	case key.Matches(msg, m.keys.send):
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if text == "" {
			return m, m.playSelected()
		}
		return m, m.submit(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs a slash command or sends text as chat.
func (m *Model) submit(text string) tea.Cmd {
	if !strings.HasPrefix(text, "/") {
		return m.send(room.Chat{Name: m.name, Message: text})
	}

	command, arg, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(command) {
	case "play", "add":
		id, err := identifiers.Normalize(m.room.Mode(), arg)
		if err != nil || id == "" {
			m.status = styles.warn.Render("usage: /play <link or id>")
			return nil
		}
		ev, err := m.state.Enqueue(m.room.Mode(), id)
		if err != nil {
			m.status = styles.warn.Render(err.Error())
			return nil
		}
		return m.send(ev)
	case "next":
		return m.step(1)
	case "prev":
		return m.step(-1)
	case "sync":
		pos := m.Position()
		if arg != "" {
			v, err := strconv.ParseFloat(arg, 64)
			if err != nil || v < 0 {
				m.status = styles.warn.Render("usage: /sync [seconds]")
				return nil
			}
			pos = v
		}
		return m.send(room.SyncTime{Time: pos})
	case "pause", "resume":
		if m.room.Mode() != models.ModeSpotify {
			m.status = styles.warn.Render("pause and resume are only shared in Spotify rooms")
			return nil
		}
		if command == "pause" {
			return m.send(room.SpotifyPause{})
		}
		return m.send(room.SpotifyResume{})
	case "quit":
		return tea.Quit
	default:
		m.status = styles.warn.Render(fmt.Sprintf("unknown command /%s", command))
		return nil
	}
}

// step plays the playlist entry delta positions from the current one.
func (m *Model) step(delta int) tea.Cmd {
	ids := m.state.Playlist
	if len(ids) == 0 {
		return nil
	}
	i := slices.Index(ids, m.state.Current()) + delta
	if i < 0 || i >= len(ids) {
		return nil
	}
	return m.playAt(ids[i])
}

func (m *Model) playSelected() tea.Cmd {
	item, ok := m.queue.SelectedItem().(queueItem)
	if !ok {
		return nil
	}
	return m.playAt(item.id)
}

// playAt switches the room to id, keeping the playlist as is.
func (m *Model) playAt(id string) tea.Cmd {
	ev, err := m.state.Enqueue(m.room.Mode(), id)
	if err != nil {
		m.status = styles.warn.Render(err.Error())
		return nil
	}
	return m.send(ev)
}

func (m *Model) togglePause() tea.Cmd {
	if m.room.Mode() != models.ModeSpotify {
		return nil
	}
	if m.paused {
		return m.send(room.SpotifyResume{})
	}
	return m.send(room.SpotifyPause{})
}

func (m *Model) send(e room.Event) tea.Cmd {
	m.status = ""
	return func() tea.Msg {
		return sentMsg(e.Kind(), m.conn.Send(m.ctx, e))
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.conn.Events()
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return disconnectedMsg()
		}
		return eventReceivedMsg(e)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg() })
}

// load points the local player at the current item.
func (m *Model) load() tea.Cmd {
	target := m.state.Current()
	if m.player == nil || target == "" {
		return nil
	}
	mode := m.state.Mode
	if mode == "" {
		mode = m.room.Mode()
	}
	cmd := playback.Command{Target: target, OffsetMs: playback.SecondsToMs(m.state.Time), DeviceID: m.deviceID}
	return func() tea.Msg {
		return loadedMsg(target, m.player.Dispatch(m.ctx, mode, cmd))
	}
}

func (m *Model) control(pause bool) tea.Cmd {
	if m.controller == nil || m.deviceID == "" {
		return nil
	}
	return func() tea.Msg {
		name, fn := "resume", m.controller.Resume
		if pause {
			name, fn = "pause", m.controller.Pause
		}
		playback.BestEffort(m.ctx, m.logger, name, func(ctx context.Context) error {
			return fn(ctx, m.deviceID)
		})
		return nil
	}
}

// resolveQueue requests metadata for queue entries not yet looked up.
func (m *Model) resolveQueue() []tea.Cmd {
	if m.resolver == nil {
		return nil
	}
	var cmds []tea.Cmd
	for _, id := range m.state.Playlist {
		if _, ok := m.meta[id]; ok || m.pending[id] {
			continue
		}
		m.pending[id] = true
		cmds = append(cmds, func() tea.Msg {
			meta, err := m.resolver(m.ctx, id)
			return resolvedMsg(id, meta, err)
		})
	}
	return cmds
}

func (m *Model) refreshQueue() {
	current := m.state.Current()
	items := make([]list.Item, 0, len(m.state.Playlist))
	for _, id := range m.state.Playlist {
		item := queueItem{id: id, current: id == current}
		if meta := m.meta[id]; meta != nil {
			item.title = meta.Name
			item.artists = meta.Artists
		}
		items = append(items, item)
	}
	m.queue.SetItems(items)
}

// View renders the now playing header, the queue and chat side by side, and the input.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress esc to quit", m.err))
	}

	header := styles.title.Render(fmt.Sprintf("%s · %s · code %s", m.room.Name(), m.room.Mode(), m.room.JoinCode()))
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.pane.Render(m.queue.View()),
		styles.pane.Render(m.renderChat()),
	)

	parts := []string{header, m.renderNowPlaying(), body, m.input.View()}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	parts = append(parts, m.help.View(m.keys))
	return strings.Join(parts, "\n")
}

func (m *Model) renderNowPlaying() string {
	current := m.state.Current()
	if current == "" {
		return styles.help.Render("Nothing playing. Add something with /play <link>.")
	}

	title := current
	if meta := m.meta[current]; meta != nil {
		title = meta.Name
		if meta.Artists != "" {
			title += " · " + meta.Artists
		}
	}

	clock := shared.FormatDuration(int(m.Position() * 1000))
	if m.paused {
		clock += " (paused)"
	}
	return styles.playing.Render("▶ "+title) + "  " + clock
}

func (m *Model) renderChat() string {
	lines := m.chat
	if limit := max(m.height-10, 5); len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	if len(lines) == 0 {
		return styles.help.Render("No messages yet")
	}

	var b strings.Builder
	for i, msg := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(styles.author.Render(msg.Name))
		b.WriteString(": ")
		b.WriteString(msg.Message)
	}
	return b.String()
}
