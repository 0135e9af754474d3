package ports

import (
	"context"
	"errors"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
)

// Poll failure classes. Adapters wrap these so the poll loop can pick the
// right recovery: backoff on rate limiting, counter bump on the rest.
var (
	ErrTimeout           = errors.New("poll timed out")
	ErrRateLimited       = errors.New("upstream rate limited")
	ErrUnavailable       = errors.New("upstream unavailable")
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// Source fetches the current readings from an upstream device API.
// It never mutates the cache; it only emits readings.
type Source interface {
	Poll(ctx context.Context) ([]*domain.Reading, error)
	Name() string
}
