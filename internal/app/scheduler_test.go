package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduler_RunsTasksUntilStopped(t *testing.T) {
	var ok, failing atomic.Int32
	s := NewScheduler(zap.NewNop(),
		Task{Name: "ok", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
			ok.Add(1)
			return nil
		}},
		Task{Name: "failing", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
			failing.Add(1)
			return errors.New("boom")
		}},
	)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return ok.Load() >= 2 && failing.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	stopped := ok.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, ok.Load())

	// повторный Stop безопасен
	s.Stop()
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	s := NewScheduler(zap.NewNop(), Task{Name: "tick", Interval: time.Millisecond, Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}})

	s.Start(ctx)
	require.Eventually(t, func() bool { return runs.Load() > 0 }, time.Second, time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
}
