package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func TestRetryStopsAfterBudget(t *testing.T) {
	sleeper := &recordingSleeper{}
	attempts := 0
	failure := NewHTTPError(500, "internal error")

	_, err := Retry(context.Background(), func(context.Context) (string, error) {
		attempts++
		return "", failure
	}, "generate", 2, WithSleep(sleeper.sleep), WithBaseDelay(100*time.Millisecond))

	require.Error(t, err)
	assert.Same(t, failure, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.delays)
}

func TestRetryDoesNotRetryNonTransientErrors(t *testing.T) {
	sleeper := &recordingSleeper{}
	attempts := 0

	err := RetryErr(context.Background(), func(context.Context) error {
		attempts++
		return NewHTTPError(422, "bad age")
	}, "create child", 5, WithSleep(sleeper.sleep))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, sleeper.delays)
}

func TestRetryReturnsFirstSuccess(t *testing.T) {
	sleeper := &recordingSleeper{}
	attempts := 0
	var seen []Category

	got, err := Retry(context.Background(), func(context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, fmt.Errorf("dial tcp: connection refused")
		}
		return 42, nil
	}, "list", 3, WithSleep(sleeper.sleep), OnFailure(func(_ int, p *ProcessedError) {
		seen = append(seen, p.Category)
	}))

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []Category{CategoryNetwork}, seen)
	assert.Equal(t, []time.Duration{DefaultRetryBaseDelay}, sleeper.delays)
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	_, err := Retry(ctx, func(context.Context) (int, error) {
		attempts++
		cancel()
		return 0, NewNetworkError(fmt.Errorf("offline"))
	}, "health", 4, WithBaseDelay(time.Hour))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryNegativeBudgetMeansOneAttempt(t *testing.T) {
	attempts := 0
	_ = RetryErr(context.Background(), func(context.Context) error {
		attempts++
		return NewNetworkError(nil)
	}, "x", -1, WithBaseDelay(0))
	assert.Equal(t, 1, attempts)
}
