package services

import (
	"context"
	"fmt"
)

const defaultMaxRetries = 3

// Versioned is a document guarded by a row version.
type Versioned interface {
	GetRowVersion() int64
}

// WithRetry reads, mutates and conditionally writes a document, starting over
// whenever another writer got there first.
func WithRetry[T Versioned](
	ctx context.Context,
	maxRetries int,
	load func(ctx context.Context) (T, error),
	updateIfVersion func(ctx context.Context, doc T, expected int64) (bool, error),
	mutate func(T) error,
) error {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		current, err := load(ctx)
		if err != nil {
			return err
		}

		oldVersion := current.GetRowVersion()
		if err := mutate(current); err != nil {
			return err
		}

		ok, err := updateIfVersion(ctx, current, oldVersion)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrTooMuchContention, maxRetries)
}
