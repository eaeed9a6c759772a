package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
)

// Service resolves identifiers queued in a room to display metadata.
type Service interface {
	// Authenticate configures the service with an access token or authorization code.
	// Services that need no credentials accept any input.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Metadata fetches display metadata for a canonical identifier.
	Metadata(ctx context.Context, id string) (*models.TrackMetadata, error)

	// Name returns the name of the service (e.g., "Spotify", "YouTube")
	Name() string
}

// APIError is a non-2xx response from an upstream API.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API error: status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s API error: status %d: %s", e.Service, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

// AsAPIError returns the [*APIError] in err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
