package ports

import (
	"context"
	"errors"
	"yard-kpi-service/internal/domain"
)

var ErrDistanceNotFound = errors.New("distance not found")

// Ground distance between two yard locations and the table it came from.
// Origin and Destination are the canonical codes the lookup used.
type DistanceResult struct {
	Origin         string
	Destination    string
	DistanceMeters int
	Source         domain.DistanceSource
	Reversed       bool
}

// Contract for retrieving the distance between two yard locations.
type DistanceProvider interface {
	// Return the distance between two raw locations, or an error wrapping
	// ErrDistanceNotFound when no edge exists.
	GetDistance(ctx context.Context, origin string, destination string) (DistanceResult, error)
}

// Contract for pure, non-failing distance resolution over reference tables.
type DistanceResolver interface {
	// Normalize both endpoints and report the lookup outcome.
	Resolve(origin, destination string) domain.DistanceLookup
}
