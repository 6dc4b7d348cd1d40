package ports

import (
	"context"
	"time"
)

// Bounded key/value cache for rendered dashboards.
type DashboardCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
