package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/repositories"
	"github.com/desertthunder/colisten/internal/services"
	"github.com/desertthunder/colisten/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    *services.SpotifyService
	youtube    *services.YouTubeService
	api        *services.APIService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    *services.SpotifyService
	YouTube    *services.YouTubeService
	API        *services.APIService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// Services left nil are built from the config.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		youtube:    opts.YouTube,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.buildServices()
	return r
}

func (r *Runner) buildServices() {
	creds := r.config.Credentials
	if r.spotify == nil {
		opts := []services.SpotifyOption{
			services.WithHTTPClient(r.httpClient),
			services.WithRateLimit(creds.Spotify.RequestsPerSecond),
		}
		if creds.Spotify.Configured() {
			if svc, err := services.NewSpotifyService(creds.Spotify.Map(), opts...); err == nil {
				r.spotify = svc
			} else {
				r.logger.Warn("spotify credentials rejected", "error", err)
			}
		}
		if r.spotify == nil {
			r.spotify = services.NewSpotifyClient(opts...)
		}
	}
	if r.youtube == nil {
		r.youtube = services.NewYouTubeService(creds.YouTube.OEmbedURL, r.httpClient)
	}
	if r.api == nil {
		r.api = services.NewAPIService(strings.TrimSuffix(r.config.Server.BaseURL, "/"), r.httpClient)
	}
}

// Before reloads config from --config and applies --log-level. It runs ahead of every command.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" && path != r.configPath {
		config, err := shared.ResolveConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.configPath = path
		r.spotify, r.youtube, r.api = nil, nil, nil
		r.buildServices()
	}

	level := cmd.String("log-level")
	if level == "" {
		level = r.config.Server.LogLevel
	}
	shared.SetLogLevelString(r.logger, level)
	return ctx, nil
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, roomCommand, listenCommand, normalizeCommand, metadataCommand, spotifyCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// store bundles the repositories over one open database.
type store struct {
	db     *sql.DB
	users  *repositories.UserRepository
	rooms  *repositories.RoomRepository
	tracks *repositories.TrackRepository
}

func (s *store) Close() error { return s.db.Close() }

func (r *Runner) openStore() (*store, error) {
	db, err := shared.OpenConfigured(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &store{
		db:     db,
		users:  repositories.NewUserRepository(db),
		rooms:  repositories.NewRoomRepository(db),
		tracks: repositories.NewTrackRepository(db),
	}, nil
}

// findRoom resolves ref as a room id first and as a join code second.
func (s *store) findRoom(ref string) (*models.Room, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: room id or join code", shared.ErrMissingArgument)
	}
	if rm, err := s.rooms.Get(ref); err == nil {
		return rm, nil
	}
	return s.rooms.GetByJoinCode(ref)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
