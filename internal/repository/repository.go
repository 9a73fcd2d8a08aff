package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"gorm.io/gorm"

	apperrors "gocms/internal/errors"
)

const retryBackoff = 100 * time.Millisecond

// isTransient reports whether a store error is worth one retry. Only
// connection-level failures qualify; integrity and not-found errors must
// surface unchanged.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// retryRead runs an idempotent read, retrying once with backoff on a
// transient failure. A second failure is surfaced as retryable to the caller.
func retryRead(ctx context.Context, fn func() error) error {
	err := fn()
	if !isTransient(err) {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryBackoff):
	}
	if err := fn(); err != nil {
		if isTransient(err) {
			return apperrors.ErrRetryable
		}
		return err
	}
	return nil
}
