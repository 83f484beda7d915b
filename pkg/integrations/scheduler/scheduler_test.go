package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestScheduler_TicksMultipleTimes(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()

	var count atomic.Int32
	s, err := New(
		WithContext(ctx),
		WithLogger(discardLogger),
		WithInterval(10*time.Millisecond),
		WithHandler(func(context.Context) error {
			count.Add(1)
			return nil
		}),
	)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestScheduler_RunAtStart(t *testing.T) {
	ran := make(chan struct{}, 1)
	s, err := New(
		WithContext(testContext(t)),
		WithLogger(discardLogger),
		WithInterval(time.Hour),
		WithRunAtStart(),
		WithHandler(func(context.Context) error {
			ran <- struct{}{}
			return errors.New("logged, not fatal")
		}),
	)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("handler did not run at start")
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))

	var count atomic.Int32
	s, err := New(
		WithContext(ctx),
		WithLogger(discardLogger),
		WithInterval(10*time.Millisecond),
		WithHandler(func(context.Context) error {
			count.Add(1)
			return nil
		}),
	)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	time.Sleep(25 * time.Millisecond)
	cancel()
	s.Stop()
	countAtCancel := count.Load()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, countAtCancel, count.Load(), "should not tick after cancel")
}

func TestScheduler_StartTwice(t *testing.T) {
	s, err := New(
		WithContext(testContext(t)),
		WithLogger(discardLogger),
		WithInterval(time.Hour),
		WithHandler(func(context.Context) error { return nil }),
	)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	s, err := New(
		WithContext(testContext(t)),
		WithLogger(discardLogger),
		WithInterval(time.Hour),
		WithHandler(func(context.Context) error { return nil }),
	)
	require.NoError(t, err)
	s.Stop()
}

func TestScheduler_InvalidConfig(t *testing.T) {
	noop := func(context.Context) error { return nil }
	tests := []struct {
		name string
		opts []Option
	}{
		{"no context", []Option{WithLogger(discardLogger), WithInterval(time.Second), WithHandler(noop)}},
		{"no interval", []Option{WithLogger(discardLogger), WithContext(context.Background()), WithHandler(noop)}},
		{"no handler", []Option{WithLogger(discardLogger), WithContext(context.Background()), WithInterval(time.Second)}},
		{"no logger", []Option{WithContext(context.Background()), WithInterval(time.Second), WithHandler(noop)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidSchedulerConfig)
		})
	}
}
