package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/desertthunder/colisten/internal/identifiers"
	"github.com/desertthunder/colisten/internal/shared"
	tu "github.com/desertthunder/colisten/internal/testing"
)

var testCredentials = map[string]string{
	"client_id":     "test_client_id",
	"client_secret": "test_client_secret",
	"redirect_uri":  "http://127.0.0.1:3000/api/spotify/callback",
}

// newTestSpotify points a service with a token at srv.
func newTestSpotify(t *testing.T, srv *httptest.Server) *SpotifyService {
	t.Helper()
	s, err := NewSpotifyService(testCredentials,
		WithHTTPClient(srv.Client()),
		WithEndpoints(srv.URL+"/authorize", srv.URL+"/api/token", srv.URL+"/v1"),
	)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return s.WithAccessToken("test_access_token")
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if !reflect.DeepEqual(srv.config.Scopes, SpotifyScopes) {
				t.Errorf("unexpected scopes %v", srv.config.Scopes)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "s"})
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("Secret Optional For Login", func(t *testing.T) {
			if _, err := NewSpotifyService(map[string]string{"client_id": "id"}); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("Bearer Only Client", func(t *testing.T) {
			srv := NewSpotifyClient()
			if srv.Configured() {
				t.Error("expected client without id to be unconfigured")
			}
			if _, err := srv.Exchange(context.Background(), "code", ""); !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}

			configured, _ := NewSpotifyService(testCredentials)
			if !configured.Configured() {
				t.Error("expected configured service")
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials)

		authURL := srv.AuthURL("test_state", "")
		u, err := url.Parse(authURL)
		if err != nil {
			t.Fatalf("invalid auth URL: %v", err)
		}
		if u.Host != "accounts.spotify.com" {
			t.Errorf("auth URL should point at Spotify, got %s", u.Host)
		}

		q := u.Query()
		if q.Get("client_id") != "test_client_id" || q.Get("state") != "test_state" || q.Get("response_type") != "code" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("scope") != strings.Join(SpotifyScopes, " ") {
			t.Errorf("unexpected scope %q", q.Get("scope"))
		}
		if q.Get("redirect_uri") != testCredentials["redirect_uri"] {
			t.Errorf("expected configured redirect, got %q", q.Get("redirect_uri"))
		}

		override, _ := url.Parse(srv.AuthURL("s", "https://example.com/api/spotify/callback"))
		if got := override.Query().Get("redirect_uri"); got != "https://example.com/api/spotify/callback" {
			t.Errorf("expected redirect override, got %q", got)
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				if !ok || user != "test_client_id" || pass != "test_client_secret" {
					t.Errorf("expected basic auth credentials, got %q %q", user, pass)
				}
				r.ParseForm()
				if r.Form.Get("code") != "abc" || r.Form.Get("grant_type") != "authorization_code" {
					t.Errorf("unexpected form %v", r.Form)
				}
				if r.Form.Get("redirect_uri") != "http://x/cb" {
					t.Errorf("expected redirect override, got %q", r.Form.Get("redirect_uri"))
				}
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`)
			}))
			defer server.Close()

			token, err := newTestSpotify(t, server).Exchange(context.Background(), "abc", "http://x/cb")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token.AccessToken != "at" || token.RefreshToken != "rt" {
				t.Errorf("unexpected token %+v", token)
			}
		})

		t.Run("Rejected", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":"invalid_grant"}`)
			}))
			defer server.Close()

			_, err := newTestSpotify(t, server).Exchange(context.Background(), "bad", "")
			apiErr, ok := AsAPIError(err)
			if !ok {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != http.StatusBadRequest || !strings.Contains(apiErr.Body, "invalid_grant") {
				t.Errorf("unexpected error %+v", apiErr)
			}
		})

		t.Run("Missing Secret", func(t *testing.T) {
			srv, _ := NewSpotifyService(map[string]string{"client_id": "id"})
			if _, err := srv.Exchange(context.Background(), "abc", ""); !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials)

		if err := srv.Authenticate(context.Background(), map[string]string{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "tok"}); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if srv.token.AccessToken != "tok" {
			t.Errorf("expected token to be stored")
		}
	})

	t.Run("Requires Token", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials)
		if _, err := srv.Track(context.Background(), "abc"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("boom"))}
		srv, _ := NewSpotifyService(testCredentials, WithHTTPClient(client))
		_, err := srv.WithAccessToken("tok").Track(context.Background(), "abc")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Unreadable Body", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		srv, _ := NewSpotifyService(testCredentials, WithHTTPClient(client))
		if _, err := srv.WithAccessToken("tok").Track(context.Background(), "abc"); err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("Rate Limit Honors Context", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials, WithRateLimit(0.001))
		srv = srv.WithAccessToken("tok")
		srv.limiter.Allow()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := srv.Track(ctx, "abc"); err == nil {
			t.Error("expected limiter error on cancelled context")
		}
	})
}

func TestSpotifyMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test_access_token" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/v1/tracks/t1":
			io.WriteString(w, `{"id":"t1","name":"Song","duration_ms":215000,"preview_url":"https://p/1",
				"artists":[{"name":"A"},{"name":"B"}],
				"album":{"name":"LP","images":[{"url":"https://img/1"}]}}`)
		case "/v1/playlists/p1":
			io.WriteString(w, `{"id":"p1","name":"Mix","owner":{"display_name":""},"images":[]}`)
		case "/v1/albums/a1":
			io.WriteString(w, `{"id":"a1","name":"Record","artists":[{"name":"C"}],"images":[{"url":"https://img/a"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"status":404,"message":"Not found."}}`)
		}
	}))
	defer server.Close()

	srv := newTestSpotify(t, server)
	ctx := context.Background()

	t.Run("Track", func(t *testing.T) {
		meta, err := srv.Metadata(ctx, "https://open.spotify.com/track/t1?si=x")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if meta.Name != "Song" || meta.Artists != "A, B" || meta.Album != "LP" || meta.DurationMs != 215000 || meta.Type != "track" {
			t.Errorf("unexpected metadata %+v", meta)
		}
		if meta.ImageURL() != "https://img/1" || meta.PreviewURL == nil || *meta.PreviewURL != "https://p/1" {
			t.Errorf("unexpected image/preview %+v", meta)
		}
	})

	t.Run("Playlist", func(t *testing.T) {
		meta, err := srv.Metadata(ctx, "spotify:playlist:p1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if meta.Type != "playlist" || meta.Artists != "Spotify" || meta.Image != nil || meta.DurationMs != 0 {
			t.Errorf("unexpected metadata %+v", meta)
		}
	})

	t.Run("Album", func(t *testing.T) {
		meta, err := srv.Metadata(ctx, "spotify:album:a1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if meta.Type != "album" || meta.Artists != "C" || meta.ImageURL() != "https://img/a" {
			t.Errorf("unexpected metadata %+v", meta)
		}
	})

	t.Run("Invalid URI", func(t *testing.T) {
		if _, err := srv.Metadata(ctx, "spotify:artist:x"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Upstream Error", func(t *testing.T) {
		_, err := srv.Metadata(ctx, "spotify:track:missing")
		apiErr, ok := AsAPIError(err)
		if !ok {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusNotFound || !strings.Contains(apiErr.Body, "Not found.") {
			t.Errorf("unexpected error %+v", apiErr)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Error("APIError should unwrap to ErrAPIRequest")
		}
	})
}

func TestSpotifyPlayer(t *testing.T) {
	type call struct {
		method, path, query string
		body                map[string]any
	}
	var calls []call

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if r.ContentLength > 0 {
			json.NewDecoder(r.Body).Decode(&c.body)
		}
		calls = append(calls, c)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	srv := newTestSpotify(t, server)
	ctx := context.Background()

	t.Run("TransferPlayback", func(t *testing.T) {
		calls = nil
		if err := srv.TransferPlayback(ctx, "dev1", false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c := calls[0]
		if c.method != http.MethodPut || c.path != "/v1/me/player" {
			t.Errorf("unexpected call %+v", c)
		}
		if c.body["play"] != false || !reflect.DeepEqual(c.body["device_ids"], []any{"dev1"}) {
			t.Errorf("unexpected body %v", c.body)
		}
	})

	t.Run("Play Track", func(t *testing.T) {
		calls = nil
		target := identifiers.SpotifyPlayTarget("abc")
		if err := srv.Play(ctx, "dev 1", target, 1500); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c := calls[0]
		if c.path != "/v1/me/player/play" || c.query != "device_id=dev+1" {
			t.Errorf("unexpected call %+v", c)
		}
		if !reflect.DeepEqual(c.body["uris"], []any{"spotify:track:abc"}) || c.body["position_ms"] != float64(1500) {
			t.Errorf("unexpected body %v", c.body)
		}
		if _, ok := c.body["context_uri"]; ok {
			t.Error("track play should not send context_uri")
		}
	})

	t.Run("Play Context", func(t *testing.T) {
		calls = nil
		if err := srv.Play(ctx, "dev1", identifiers.SpotifyPlayTarget("spotify:playlist:p"), -5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c := calls[0]
		if c.body["context_uri"] != "spotify:playlist:p" || c.body["position_ms"] != float64(0) {
			t.Errorf("unexpected body %v", c.body)
		}
	})

	t.Run("Pause And Resume", func(t *testing.T) {
		calls = nil
		if err := srv.Pause(ctx, "dev1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := srv.Resume(ctx, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls[0].path != "/v1/me/player/pause" || calls[1].path != "/v1/me/player/play" || calls[1].query != "" {
			t.Errorf("unexpected calls %+v", calls)
		}
	})
}
