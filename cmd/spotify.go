package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/colisten/internal/server"
	"github.com/desertthunder/colisten/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const (
	defaultTokenFile = "spotify_token.json"
	oauthTimeout     = 2 * time.Minute
	cliCallbackPath  = "/callback"
)

// SpotifyLogin runs the authorization code flow against a temporary local callback server
// and writes the resulting token to --token-file.
func (r *Runner) SpotifyLogin(ctx context.Context, cmd *cli.Command) error {
	if !r.config.Credentials.Spotify.Configured() {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingConfig, r.configPath)
	}

	ln, err := net.Listen("tcp", cmd.String("callback-addr"))
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}

	token, err := r.doOAuth(ctx, ln, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	path := cmd.String("token-file")
	if err := saveToken(path, token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to %s\n\n", path)
	r.writePlain("You can now use: colisten listen <room> --device <id>\n")
	return nil
}

// SpotifyLoginURL prints the authorization URL that the server's own callback completes.
func (r *Runner) SpotifyLoginURL(ctx context.Context, cmd *cli.Command) error {
	if !r.spotify.Configured() {
		return fmt.Errorf("%w: Spotify client_id must be set in %s", shared.ErrMissingConfig, r.configPath)
	}
	return r.writePlain("%s\n", r.spotify.AuthURL(shared.GenerateID(), ""))
}

// doOAuth serves the callback on ln, opens the browser and waits for the token.
func (r *Runner) doOAuth(ctx context.Context, ln net.Listener, timeout time.Duration) (*oauth2.Token, error) {
	state := shared.GenerateID()
	redirectURI := "http://" + ln.Addr().String() + cliCallbackPath

	oauthHandler := server.NewOAuthHandler(r.spotify, state, redirectURI, cliCallbackPath)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", ln.Addr())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := r.spotify.AuthURL(state, redirectURI)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrAuthFailed, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

// loadToken reads a token written by [saveToken]. Expired tokens are reported as [shared.ErrTokenExpired].
func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no token at %s, run 'colisten spotify login'", shared.ErrNotAuthenticated, path)
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: malformed token file %s", shared.ErrInvalidInput, path)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in %s", shared.ErrNotAuthenticated, path)
	}
	if !token.Expiry.IsZero() && time.Now().After(token.Expiry) {
		return nil, fmt.Errorf("%w: run 'colisten spotify login' again", shared.ErrTokenExpired)
	}
	return &token, nil
}
