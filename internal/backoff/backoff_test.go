package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyDelay(t *testing.T) {
	p := Policy{Initial: time.Second, Max: 30 * time.Second, Factor: 2}

	assert.Equal(t, 1*time.Second, p.delayWithRand(1, 0))
	assert.Equal(t, 2*time.Second, p.delayWithRand(2, 0))
	assert.Equal(t, 4*time.Second, p.delayWithRand(3, 0))
	// Capped at Max no matter how many attempts.
	assert.Equal(t, 30*time.Second, p.delayWithRand(10, 0))
}

func TestPolicyDelayJitter(t *testing.T) {
	p := Policy{Initial: time.Second, Max: 30 * time.Second, Factor: 2, Jitter: 0.5}

	// With random=1 the jitter adds Jitter*base on top.
	assert.Equal(t, 1500*time.Millisecond, p.delayWithRand(1, 1))
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Policy{Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}, 3, func(attempt int) (bool, error) {
		calls++
		if attempt < 3 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), Policy{Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}, 3, func(int) (bool, error) {
		calls++
		return true, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("bad request")
	calls := 0
	err := Retry(context.Background(), DefaultPolicy(), 3, func(int) (bool, error) {
		calls++
		return false, fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestSleepUnblocksOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Sleep(ctx, time.Hour)
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("sleep did not unblock on cancellation")
	}
}

func TestRetryRespectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, DefaultPolicy(), 3, func(int) (bool, error) {
		t.Fatal("fn should not run with a canceled context")
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
