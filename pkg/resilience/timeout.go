package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/errors"
)

// WithTimeout bounds fn by d and returns as soon as d elapses, even if fn
// is still running. A timeout matches both apperrors.ErrTimeout and
// context.DeadlineExceeded. d <= 0 runs fn unbounded.
func WithTimeout(ctx context.Context, d time.Duration, name string, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeoutCause(ctx, d, apperrors.ErrTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	var err error
	select {
	case err = <-done:
		if err == nil || ctx.Err() == nil {
			return err
		}
	case <-ctx.Done():
	}
	if errors.Is(context.Cause(ctx), apperrors.ErrTimeout) {
		return fmt.Errorf("%s exceeded %v: %w: %w", name, d, apperrors.ErrTimeout, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s: %w", name, context.Cause(ctx))
}
