package coastal

import (
	"errors"
	"fmt"
)

var (
	// ErrCoordinateUnresolved means neither explicit coordinates nor the station table
	// produced a position.
	ErrCoordinateUnresolved = errors.New("coordinates could not be resolved")

	// ErrTimeout is wrapped by any outbound call that exceeded its deadline.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrCircuitOpen is returned while an upstream's circuit breaker refuses calls.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrSuperseded is returned when a newer result for the same key was already
	// applied (or the key was cleared) while this request was in flight.
	ErrSuperseded = errors.New("result superseded by a newer request")

	// ErrNotFound is returned when nothing is stored for a key.
	ErrNotFound = errors.New("no data for key")

	// ErrInvalidCoordinates is returned for non-finite latitude or longitude.
	ErrInvalidCoordinates = errors.New("latitude and longitude must be finite numbers")
)

// ProviderError is a non-success answer from the weather proxy or its provider.
type ProviderError struct {
	Status  int
	Message string
	Body    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("weather provider error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("weather provider error (status %d)", e.Status)
}

// BackendUnavailableError is any failure of the application backend.
type BackendUnavailableError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *BackendUnavailableError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("backend unavailable: %s returned %d: %v", e.Endpoint, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("backend unavailable: %s: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("backend unavailable: %s returned %d", e.Endpoint, e.Status)
	}
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}
