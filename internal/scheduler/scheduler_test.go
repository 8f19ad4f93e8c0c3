package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunBounded_RunsExactly(t *testing.T) {
	var got []int
	s := New(time.Millisecond, func(_ context.Context, i int) error {
		got = append(got, i)
		return nil
	}, zap.NewNop())

	require.NoError(t, s.RunBounded(context.Background(), 3))
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestRunBounded_FatalErrorStops(t *testing.T) {
	calls := 0
	s := New(time.Millisecond, func(_ context.Context, i int) error {
		calls++
		if i == 2 {
			return fmt.Errorf("database gone")
		}
		return nil
	}, zap.NewNop())

	err := s.RunBounded(context.Background(), 5)
	assert.ErrorContains(t, err, "iteration 2")
	assert.ErrorContains(t, err, "database gone")
	assert.Equal(t, 2, calls)
}

func TestRunBounded_CancelBetweenIterations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	s := New(time.Hour, func(context.Context, int) error {
		calls++
		cancel() // cancel mid-iteration; the iteration itself completes
		return nil
	}, zap.NewNop())

	err := s.RunBounded(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "started iteration finishes, next never starts")
}

func TestRunBounded_RejectsNonPositiveCount(t *testing.T) {
	s := New(time.Millisecond, func(context.Context, int) error { return nil }, zap.NewNop())
	assert.Error(t, s.RunBounded(context.Background(), 0))
}

func TestRunForever_FirstIterationImmediate(t *testing.T) {
	ran := make(chan int, 1)
	s := New(time.Hour, func(_ context.Context, i int) error {
		select {
		case ran <- i:
		default:
		}
		return nil
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunForever(ctx) }()

	select {
	case i := <-ran:
		assert.Equal(t, 1, i)
	case <-time.After(2 * time.Second):
		t.Fatal("first iteration did not run immediately")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}

func TestRunForever_FatalErrorSurfaces(t *testing.T) {
	s := New(time.Hour, func(context.Context, int) error {
		return fmt.Errorf("store write failed")
	}, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- s.RunForever(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "iteration 1")
		assert.ErrorContains(t, err, "store write failed")
	case <-time.After(2 * time.Second):
		t.Fatal("fatal error did not stop the scheduler")
	}
}
