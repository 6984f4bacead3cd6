package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
)

func fastRetrier(maxRetries int) (*Retrier, *[]time.Duration) {
	r := NewRetrier(Policy{MaxRetries: maxRetries, InitialDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond, Multiplier: 2}, nil)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestRetrier_RetriesStorageFailure(t *testing.T) {
	r, slept := fastRetrier(3)
	calls := 0

	got, err := Value(context.Background(), r, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", apperrors.StorageFailureError("purchase", errors.New("lock timeout"))
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *slept)
}

func TestRetrier_DoesNotRetryBusinessFailures(t *testing.T) {
	r, slept := fastRetrier(3)
	calls := 0

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return apperrors.AlreadyProcessedError("withdrawal", "approved")
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsAlreadyProcessed(err))
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestRetrier_GivesUp(t *testing.T) {
	r, slept := fastRetrier(2)
	calls := 0

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return apperrors.StorageFailureError("confirm_deposit", errors.New("serialization failure"))
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.True(t, apperrors.IsStorageFailure(err))
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *slept)
}

func TestRetrier_StopsOnCancelledContext(t *testing.T) {
	r, _ := fastRetrier(5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, func(context.Context) error {
		t.Fatal("operation must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_CapsAtMaxDelay(t *testing.T) {
	b := NewBackoff(Policy{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2})
	assert.Equal(t, 100*time.Millisecond, b.Calculate(1))
	assert.Equal(t, 200*time.Millisecond, b.Calculate(2))
	assert.Equal(t, 300*time.Millisecond, b.Calculate(3))
	assert.Equal(t, 300*time.Millisecond, b.Calculate(10))
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{MaxRetries: -1}.Validate())
	assert.Error(t, Policy{InitialDelay: time.Second, MaxDelay: time.Millisecond}.Validate())
	assert.Error(t, Policy{Multiplier: 0.5}.Validate())
	assert.Error(t, Policy{Jitter: 2}.Validate())
}
