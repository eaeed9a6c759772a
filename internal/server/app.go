package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/realtime"
	"github.com/desertthunder/colisten/internal/services"
	"github.com/desertthunder/colisten/internal/shared"
)

const shutdownTimeout = 10 * time.Second

// UserStore is the user persistence used by the API.
type UserStore interface {
	Get(id string) (*models.User, error)
	GetOrCreate(email, name string) (*models.User, error)
}

// RoomStore is the room directory used by the API.
type RoomStore interface {
	Create(room *models.Room) error
	Get(id string) (*models.Room, error)
	GetByJoinCode(code string) (*models.Room, error)
	ListByOwner(ownerID string) ([]*models.Room, error)
}

// Deps are the collaborators an [App] serves requests with.
type Deps struct {
	Config  *shared.Config
	Logger  *log.Logger
	Users   UserStore
	Rooms   RoomStore
	Cache   services.MetadataCache
	Pool    *realtime.Pool
	Spotify *services.SpotifyService
	YouTube *services.YouTubeService
}

// App is the colisten HTTP API.
type App struct {
	config   *shared.Config
	logger   *log.Logger
	users    UserStore
	rooms    RoomStore
	cache    services.MetadataCache
	pool     *realtime.Pool
	spotify  *services.SpotifyService
	youtube  *services.YouTubeService
	upgrader websocket.Upgrader
	router   *BasicRouter
}

// New builds an [App] and registers its routes. Missing optional deps get defaults.
func New(deps Deps) (*App, error) {
	if deps.Users == nil || deps.Rooms == nil || deps.Pool == nil {
		return nil, fmt.Errorf("%w: users, rooms and pool are required", shared.ErrMissingArgument)
	}
	if deps.Config == nil {
		deps.Config = shared.DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	if deps.Spotify == nil {
		deps.Spotify = services.NewSpotifyClient()
	}
	if deps.YouTube == nil {
		deps.YouTube = services.NewYouTubeService(deps.Config.Credentials.YouTube.OEmbedURL, nil)
	}

	a := &App{
		config:  deps.Config,
		logger:  shared.WithLogger(deps.Logger, "component", "http"),
		users:   deps.Users,
		rooms:   deps.Rooms,
		cache:   deps.Cache,
		pool:    deps.Pool,
		spotify: deps.Spotify,
		youtube: deps.YouTube,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		router: NewBasicRouter(),
	}
	a.routes()
	return a, nil
}

func (a *App) routes() {
	r := a.router
	r.Use(Recover(a.logger), Logging(a.logger))

	r.Handler(healthHandler{})

	r.HandleFunc(http.MethodPost, "/api/login", a.login)
	r.HandleFunc(http.MethodPost, "/api/logout", a.logout)
	r.HandleFunc(http.MethodGet, "/api/me", a.requireUser(a.me))

	r.HandleFunc(http.MethodPost, "/api/rooms", a.requireUser(a.createRoom))
	r.HandleFunc(http.MethodGet, "/api/rooms", a.requireUser(a.listRooms))
	r.HandleFunc(http.MethodPost, "/api/rooms/join", a.requireUser(a.joinRoom))
	r.HandleFunc(http.MethodGet, "/api/rooms/{id}", a.getRoom)
	r.HandleFunc(http.MethodGet, "/api/rooms/{id}/state", a.roomState)
	r.HandleFunc(http.MethodGet, "/api/rooms/{id}/ws", a.roomSocket)

	r.HandleFunc(http.MethodGet, "/api/spotify/login", a.spotifyLogin)
	r.HandleFunc(http.MethodGet, "/api/spotify/callback", a.spotifyCallback)
	r.HandleFunc(http.MethodGet, "/api/spotify/token", a.spotifyToken)
	r.HandleFunc(http.MethodPost, "/api/spotify/play", a.spotifyPlay)
	r.HandleFunc(http.MethodGet, "/api/spotify/track", a.spotifyTrack)

	r.HandleFunc(http.MethodGet, "/api/youtube/video", a.youtubeVideo)
}

// ServeHTTP implements [http.Handler].
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (a *App) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
//
// Open websocket participants are disconnected through the pool on shutdown.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv.RegisterOnShutdown(a.pool.Close)

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

type healthHandler struct{}

func (healthHandler) Routes() []string { return []string{"GET /healthz"} }

func (healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
