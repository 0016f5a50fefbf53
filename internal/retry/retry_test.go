package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverRunSucceedsFirstTry(t *testing.T) {
	d := New(3, time.Millisecond)
	calls := 0
	err := d.Run(context.Background(), nil, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDriverRunRetriesRetryableError(t *testing.T) {
	d := New(3, time.Millisecond)
	calls := 0
	err := d.Run(context.Background(), nil, func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDriverRunStopsOnNonRetryableError(t *testing.T) {
	d := New(5, time.Millisecond)
	calls := 0
	permanent := errors.New("permanent")
	err := d.Run(context.Background(), nil, func() error {
		calls++
		return permanent
	})
	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestDriverRunExhaustsAttempts(t *testing.T) {
	d := New(3, time.Millisecond)
	calls := 0
	err := d.Run(context.Background(), nil, func() error {
		calls++
		return Retryable(errors.New("always transient"))
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDriverRunHonorsCancellation(t *testing.T) {
	d := New(5, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := d.Run(ctx, nil, func() error {
		calls++
		return Retryable(errors.New("transient"))
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, calls, 1)
}

func TestDriverRunUsesClassifyForUnwrappedErrors(t *testing.T) {
	d := New(2, time.Millisecond)
	calls := 0
	err := d.Run(context.Background(), TransientChatError, func() error {
		calls++
		if calls < 2 {
			return errors.New("upstream returned 503 Service Unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTransientChatError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"503", errors.New("upstream 503"), true},
		{"overloaded", errors.New("model overloaded"), true},
		{"unavailable", errors.New("UNAVAILABLE: try later"), true},
		{"rate limit", errors.New("rate limit exceeded"), true},
		{"network error", errors.New("Network error: timeout"), true},
		{"permanent", errors.New("invalid api key"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TransientChatError(tc.err))
		})
	}
}
