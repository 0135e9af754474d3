package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
)

// Sink consumes accepted readings. Failures are transient (retried with
// backoff) unless wrapped with Permanent.
type Sink interface {
	Deliver(ctx context.Context, r *domain.Reading) error
	Name() string
}

// ErrPermanent marks a delivery failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent delivery failure")

// Permanent wraps err so the dispatcher skips retries for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
