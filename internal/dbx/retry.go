package dbx

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/corefirst/authstore/internal/storageerr"
)

// DoWithRetry runs fn in a unit of work and, when the whole unit fails with
// a lock timeout, rolls it back and redoes it from the beginning with
// exponential backoff. Every other error is final: the storage layer never
// retries conflicts, missing rows, or backend failures on its own.
func (m *Manager) DoWithRetry(ctx context.Context, maxRetries uint64, fn func(ctx context.Context, uow *UnitOfWork) error) error {
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(50*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := m.Do(ctx, fn)
		if errors.Is(err, storageerr.ErrLockTimeout) {
			return retry.RetryableError(err)
		}
		return err
	})
}
