package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/errors"
)

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

func newTestBreaker(threshold int, transitions *[]State) (*Breaker, *time.Time) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("assessment-store", BreakerConfig{
		FailureThreshold: threshold,
		Cooldown:         time.Minute,
		OnStateChange: func(_ string, to State) {
			if transitions != nil {
				*transitions = append(*transitions, to)
			}
		},
	})
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	var transitions []State
	b, clock := newTestBreaker(2, &transitions)

	assert.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	*clock = clock.Add(time.Minute)
	require.NoError(t, b.Execute(succeed))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b, clock := newTestBreaker(1, nil)
	_ = b.Execute(fail)
	*clock = clock.Add(2 * time.Minute)

	assert.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Execute(succeed), ErrCircuitOpen)

	*clock = clock.Add(time.Minute)
	assert.NoError(t, b.Execute(succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerSingleProbe(t *testing.T) {
	b, clock := newTestBreaker(1, nil)
	_ = b.Execute(fail)
	*clock = clock.Add(time.Minute)

	err := b.Execute(func() error {
		assert.ErrorIs(t, b.Execute(succeed), ErrCircuitOpen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	b, _ := newTestBreaker(1, nil)
	err := b.Execute(func() error { return fmt.Errorf("saving: %w", context.Canceled) })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "state(7)", State(7).String())
}

func TestBackoffDo(t *testing.T) {
	attempts := 0
	err := Backoff{Attempts: 3, Base: time.Millisecond}.Do(context.Background(), "flaky", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = Backoff{Attempts: 2, Base: time.Millisecond}.Do(context.Background(), "dead", func(context.Context) error {
		attempts++
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, attempts)
}

func TestBackoffPermanent(t *testing.T) {
	attempts := 0
	err := Backoff{Attempts: 5, Base: time.Millisecond}.Do(context.Background(), "auth", func(context.Context) error {
		attempts++
		return Permanent(errBoom)
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, Permanent(nil))
}

func TestBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Backoff{Attempts: 5, Base: time.Hour}.Do(ctx, "cancelled", func(context.Context) error { return errBoom })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Max: time.Second}.withDefaults()
	assert.Equal(t, 100*time.Millisecond, b.delay(1))
	assert.Equal(t, 400*time.Millisecond, b.delay(3))
	assert.Equal(t, time.Second, b.delay(10))
	assert.Equal(t, time.Second, b.delay(80))

	jittered := Backoff{Base: 100 * time.Millisecond, Jitter: 0.5}.withDefaults()
	for range 20 {
		d := jittered.delay(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)

	err = WithTimeout(context.Background(), 0, "unbounded", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)

	err = WithTimeout(context.Background(), time.Second, "fails", func(ctx context.Context) error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
}

func TestWithTimeoutParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithTimeout(ctx, time.Second, "cancelled", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrTimeout)
}
