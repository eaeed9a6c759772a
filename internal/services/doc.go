// Package services wraps the vendor APIs a room talks to.
//
// # Service Interface
//
// Metadata providers implement [Service] so handlers and the CLI can resolve a queued
// identifier to display metadata without caring which platform it belongs to.
//
// # Spotify
//
// [SpotifyService] performs the authorization-code flow with [oauth2] and calls the Web API
// with a bearer token: track, album and playlist lookups plus the player transfer, play and
// pause commands. Requests share a [rate.Limiter].
//
// # YouTube
//
// [YouTubeService] resolves video metadata through the public oEmbed endpoint using
// [APIService] for the raw HTTP call.
//
// # Error Handling
//
// Upstream failures are returned as [*APIError] carrying the vendor's status code and body
// so HTTP handlers can relay them verbatim. Local failures use the shared sentinels:
//   - [shared.ErrNotAuthenticated] : no access token
//   - [shared.ErrMissingCredentials] : client id or secret not configured
//   - [shared.ErrInvalidInput] : identifier of an unsupported kind
package services
