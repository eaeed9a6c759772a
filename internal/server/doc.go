// Package server is the colisten HTTP API.
//
// # Routing
//
// [BasicRouter] wraps [http.ServeMux] with a middleware stack. Routes are method qualified
// patterns ("GET /api/rooms/{id}") so one path may carry several methods. [Handler]
// implementations bring their own patterns via Routes.
//
// [Middleware] wraps handlers in reverse order (last added executes first). [App] installs
// [Recover] and [Logging] on every route.
//
// # API
//
// [App] serves the room directory, the per-room websocket, the Spotify OAuth flow and
// thin proxies to the Spotify Web API and YouTube oEmbed. Identity is a colisten_user cookie
// holding the user id; Spotify tokens are kept in their own HttpOnly cookies.
//
// Failures are mapped from sentinel errors in the shared package to status codes. Upstream
// API errors are relayed with the upstream status and body.
//
// # CLI OAuth callback
//
// [OAuthHandler] serves exactly one authorization callback for the CLI login command, which
// starts a temporary listener and stops it after the token arrives.
package server
