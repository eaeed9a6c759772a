// package playback commands a platform player to load the room's now playing item.
package playback

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/colisten/internal/identifiers"
	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/services"
	"github.com/desertthunder/colisten/internal/shared"
)

// Command asks an adapter to load Target at OffsetMs on DeviceID.
type Command struct {
	Target   string
	OffsetMs int
	DeviceID string
}

// Adapter loads and starts a target on one platform.
type Adapter interface {
	Load(ctx context.Context, cmd Command) error
}

// AdapterFunc adapts a function to [Adapter].
type AdapterFunc func(ctx context.Context, cmd Command) error

func (f AdapterFunc) Load(ctx context.Context, cmd Command) error { return f(ctx, cmd) }

// BestEffort runs fn and discards its error after logging it at debug level.
//
// Use it for prerequisite calls whose failure is expected and harmless.
func BestEffort(ctx context.Context, logger *log.Logger, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		logger.Debug("best-effort step failed", "step", name, "error", err)
	}
}

// SpotifyPlayer is the subset of [services.SpotifyService] used to drive playback.
type SpotifyPlayer interface {
	TransferPlayback(ctx context.Context, deviceID string, play bool) error
	Play(ctx context.Context, deviceID string, target identifiers.PlayTarget, positionMs int) error
}

var _ SpotifyPlayer = (*services.SpotifyService)(nil)

// SpotifyAdapter transfers playback to the target device and then plays.
type SpotifyAdapter struct {
	player SpotifyPlayer
	logger *log.Logger
}

// NewSpotifyAdapter creates a [SpotifyAdapter].
func NewSpotifyAdapter(player SpotifyPlayer, logger *log.Logger) *SpotifyAdapter {
	return &SpotifyAdapter{player: player, logger: logger}
}

// Load requires a device and a target. A failed transfer is ignored since it fails whenever no
// other device was active; a failed play is returned unchanged.
func (a *SpotifyAdapter) Load(ctx context.Context, cmd Command) error {
	if cmd.DeviceID == "" || strings.TrimSpace(cmd.Target) == "" {
		return fmt.Errorf("%w: deviceId and uri are required", shared.ErrMissingArgument)
	}

	BestEffort(ctx, a.logger, "transfer playback", func(ctx context.Context) error {
		return a.player.TransferPlayback(ctx, cmd.DeviceID, false)
	})

	target := identifiers.SpotifyPlayTarget(identifiers.NormalizeSpotify(cmd.Target))
	return a.player.Play(ctx, cmd.DeviceID, target, cmd.OffsetMs)
}

// EmbedAdapter turns a YouTube target into an embed URL and hands it to Open.
type EmbedAdapter struct {
	open func(url string) error
}

// NewEmbedAdapter creates an [EmbedAdapter]. open is typically [shared.OpenBrowser].
func NewEmbedAdapter(open func(url string) error) *EmbedAdapter {
	return &EmbedAdapter{open: open}
}

func (a *EmbedAdapter) Load(ctx context.Context, cmd Command) error {
	id := identifiers.NormalizeYouTube(cmd.Target)
	if id == "" {
		return fmt.Errorf("%w: video id is required", shared.ErrMissingArgument)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.open(services.EmbedURL(id, cmd.OffsetMs/1000))
}

// Dispatcher routes commands to the adapter registered for a room mode.
type Dispatcher struct {
	adapters map[models.RoomMode]Adapter
}

// NewDispatcher creates an empty [Dispatcher].
func NewDispatcher() *Dispatcher {
	return &Dispatcher{adapters: make(map[models.RoomMode]Adapter)}
}

// Register sets the adapter for mode, replacing any previous one.
func (d *Dispatcher) Register(mode models.RoomMode, a Adapter) *Dispatcher {
	d.adapters[mode] = a
	return d
}

// Dispatch loads cmd with the adapter for mode.
func (d *Dispatcher) Dispatch(ctx context.Context, mode models.RoomMode, cmd Command) error {
	a, ok := d.adapters[mode]
	if !ok {
		return fmt.Errorf("%w: no player for mode %q", shared.ErrInvalidInput, mode)
	}
	return a.Load(ctx, cmd)
}

// maxOffsetSeconds keeps offsets within int32 milliseconds.
const maxOffsetSeconds = math.MaxInt32 / 1000

// SecondsToMs converts a broadcast position in seconds to a command offset.
// Negative and NaN positions become 0; larger positions are clamped to maxOffsetSeconds.
func SecondsToMs(t *float64) int {
	if t == nil || !(*t > 0) {
		return 0
	}
	return int(min(*t, maxOffsetSeconds) * 1000)
}
