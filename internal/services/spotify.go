// Spotify Web API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/colisten/internal/identifiers"
	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyScopes are the scopes requested for in-browser playback and player control.
var SpotifyScopes = []string{
	"streaming",
	"user-read-email",
	"user-read-private",
	"user-modify-playback-state",
	"user-read-playback-state",
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	PreviewURL *string         `json:"preview_url"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       Owner          `json:"owner"`
	Public      bool           `json:"public"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

// SpotifyService talks to the Spotify accounts service and Web API.
//
// A zero-token service can build authorization URLs and exchange codes; API calls need a
// token from [SpotifyService.Authenticate] or [SpotifyService.WithAccessToken].
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithHTTPClient sets the client used for API calls and token exchange.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = c }
}

// WithEndpoints points the service at alternate accounts and API hosts.
func WithEndpoints(authURL, tokenURL, apiBaseURL string) SpotifyOption {
	return func(s *SpotifyService) {
		s.config.Endpoint.AuthURL = authURL
		s.config.Endpoint.TokenURL = tokenURL
		s.baseURL = strings.TrimSuffix(apiBaseURL, "/")
	}
}

// WithRateLimit caps outgoing API calls per second. Zero or less disables the limit.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
//
// client_id is required; client_secret is only needed for [SpotifyService.Exchange].
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := strings.TrimSpace(credentials["client_id"])
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingConfig)
	}

	s := NewSpotifyClient(opts...)
	s.config.ClientID = clientID
	s.config.ClientSecret = strings.TrimSpace(credentials["client_secret"])
	s.config.RedirectURL = credentials["redirect_uri"]
	return s, nil
}

// NewSpotifyClient creates a service without app credentials. It can call the Web API with a
// user's bearer token but cannot build authorization URLs or exchange codes.
func NewSpotifyClient(opts ...SpotifyOption) *SpotifyService {
	s := &SpotifyService{
		config: &oauth2.Config{
			Scopes: SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyAuthURL,
				TokenURL:  spotifyTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether the service has a client id for the authorization flow.
func (s *SpotifyService) Configured() bool {
	return s.config.ClientID != ""
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate expects either an "access_token" or an "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken := credentials["access_token"]; accessToken != "" {
		s.token = &oauth2.Token{AccessToken: accessToken, RefreshToken: credentials["refresh_token"]}
		return nil
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		token, err := s.Exchange(ctx, authCode, credentials["redirect_uri"])
		if err != nil {
			return err
		}
		s.token = token
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code in credentials", shared.ErrMissingCredentials)
}

// WithAccessToken returns a copy of the service that calls the API as the token's owner.
func (s *SpotifyService) WithAccessToken(accessToken string) *SpotifyService {
	clone := *s
	clone.token = &oauth2.Token{AccessToken: accessToken}
	return &clone
}

// AuthURL returns the authorization URL for user login. An empty redirectURI uses the configured one.
func (s *SpotifyService) AuthURL(state, redirectURI string) string {
	var opts []oauth2.AuthCodeOption
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}
	return s.config.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for a token. redirectURI must match the one used for [SpotifyService.AuthURL].
func (s *SpotifyService) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	if s.config.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingConfig)
	}

	var opts []oauth2.AuthCodeOption
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code, opts...)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, &APIError{Service: "Spotify", StatusCode: re.Response.StatusCode, Body: string(re.Body)}
		}
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// body is JSON encoded when non-nil; result is decoded when non-nil and the response has content.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.token == nil || s.token.AccessToken == "" {
		return shared.ErrNotAuthenticated
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return &APIError{Service: "Spotify", StatusCode: resp.StatusCode, Body: string(text)}
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	if err := s.doRequest(ctx, http.MethodGet, "/tracks/"+url.PathEscape(trackID), nil, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// Album retrieves an album by ID.
func (s *SpotifyService) Album(ctx context.Context, albumID string) (*SpotifyAlbum, error) {
	var album SpotifyAlbum
	if err := s.doRequest(ctx, http.MethodGet, "/albums/"+url.PathEscape(albumID), nil, &album); err != nil {
		return nil, err
	}
	return &album, nil
}

// Playlist retrieves a playlist by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodGet, "/playlists/"+url.PathEscape(playlistID), nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// Metadata resolves a playlist, album or track URI (or share link) to display metadata.
func (s *SpotifyService) Metadata(ctx context.Context, uri string) (*models.TrackMetadata, error) {
	if id, ok := identifiers.ExtractSpotifyID(uri, identifiers.KindPlaylist); ok {
		playlist, err := s.Playlist(ctx, id)
		if err != nil {
			return nil, err
		}
		artists := playlist.Owner.DisplayName
		if artists == "" {
			artists = "Spotify"
		}
		return &models.TrackMetadata{
			ID:      playlist.ID,
			Name:    playlist.Name,
			Artists: artists,
			Image:   firstImage(playlist.Images),
			Type:    identifiers.KindPlaylist,
		}, nil
	}

	if id, ok := identifiers.ExtractSpotifyID(uri, identifiers.KindAlbum); ok {
		album, err := s.Album(ctx, id)
		if err != nil {
			return nil, err
		}
		return &models.TrackMetadata{
			ID:      album.ID,
			Name:    album.Name,
			Artists: joinArtists(album.Artists),
			Album:   album.Name,
			Image:   firstImage(album.Images),
			Type:    identifiers.KindAlbum,
		}, nil
	}

	id, ok := identifiers.ExtractSpotifyID(uri, identifiers.KindTrack)
	if !ok {
		return nil, fmt.Errorf("%w: invalid track or playlist uri", shared.ErrInvalidInput)
	}

	track, err := s.Track(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.TrackMetadata{
		ID:         track.ID,
		Name:       track.Name,
		Artists:    joinArtists(track.Artists),
		Album:      track.Album.Name,
		Image:      firstImage(track.Album.Images),
		DurationMs: track.DurationMS,
		PreviewURL: track.PreviewURL,
		Type:       identifiers.KindTrack,
	}, nil
}

// TransferPlayback moves playback to deviceID. play=false keeps the current paused/playing state.
func (s *SpotifyService) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	body := map[string]any{"device_ids": []string{deviceID}, "play": play}
	return s.doRequest(ctx, http.MethodPut, "/me/player", body, nil)
}

// Play starts target on deviceID at positionMs.
func (s *SpotifyService) Play(ctx context.Context, deviceID string, target identifiers.PlayTarget, positionMs int) error {
	body := map[string]any{"position_ms": max(positionMs, 0)}
	if target.ContextURI != "" {
		body["context_uri"] = target.ContextURI
	} else {
		body["uris"] = target.URIs
	}
	return s.doRequest(ctx, http.MethodPut, "/me/player/play"+deviceQuery(deviceID), body, nil)
}

// Resume continues the current playback on deviceID.
func (s *SpotifyService) Resume(ctx context.Context, deviceID string) error {
	return s.doRequest(ctx, http.MethodPut, "/me/player/play"+deviceQuery(deviceID), nil, nil)
}

// Pause pauses playback on deviceID.
func (s *SpotifyService) Pause(ctx context.Context, deviceID string) error {
	return s.doRequest(ctx, http.MethodPut, "/me/player/pause"+deviceQuery(deviceID), nil, nil)
}

func deviceQuery(deviceID string) string {
	if deviceID == "" {
		return ""
	}
	return "?device_id=" + url.QueryEscape(deviceID)
}

func joinArtists(artists []SpotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func firstImage(images []SpotifyImage) *string {
	if len(images) == 0 || images[0].URL == "" {
		return nil
	}
	u := images[0].URL
	return &u
}
