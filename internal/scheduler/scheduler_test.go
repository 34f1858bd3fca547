package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	runs []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, name)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func TestScheduler_HoldsTasksUntilStart(t *testing.T) {
	var calls atomic.Int32
	s := scheduler.New(context.Background(), 2, func(ctx context.Context, task scheduler.Task) error {
		calls.Add(1)
		return nil
	})

	assert.True(t, s.Enqueue("widget", nil))
	assert.False(t, s.Enqueue("widget", nil))
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, calls.Load())

	s.Start()
	require.NoError(t, s.Wait())
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, []string{"widget"}, s.Names())
}

func TestScheduler_DynamicEnqueueDrainsQueue(t *testing.T) {
	rec := &recorder{}
	var s *scheduler.Scheduler
	s = scheduler.New(context.Background(), 2, func(ctx context.Context, task scheduler.Task) error {
		rec.add(task.Name)
		switch task.Name {
		case "a":
			s.Enqueue("b", nil)
			s.Enqueue("c", nil)
		case "b":
			time.Sleep(5 * time.Millisecond)
			s.Enqueue("a", nil)
			s.Enqueue("d", nil)
		}
		return nil
	})

	s.Enqueue("a", nil)
	s.Start()
	require.NoError(t, s.Wait())
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, rec.names())
	assert.Equal(t, []string{"a", "b", "c", "d"}, s.Sorted())
}

func TestScheduler_EmptyQueue(t *testing.T) {
	s := scheduler.New(context.Background(), 1, func(ctx context.Context, task scheduler.Task) error {
		return nil
	})
	assert.ErrorIs(t, s.Wait(), scheduler.ErrNotStarted)
	s.Start()
	require.NoError(t, s.Wait())
}

func TestScheduler_EnqueueAsyncUsesManifestNames(t *testing.T) {
	m := dep.NewManifest("/app", "browser.json", nil, map[string][]any{
		"zeta":  {"z.js"},
		"alpha": {"a.js"},
	})
	rec := &recorder{}
	s := scheduler.New(context.Background(), 1, func(ctx context.Context, task scheduler.Task) error {
		assert.Same(t, m, task.Manifest)
		rec.add(task.Name)
		return nil
	})

	s.EnqueueAsync(m)
	s.Start()
	require.NoError(t, s.Wait())
	assert.ElementsMatch(t, []string{"alpha", "zeta"}, rec.names())
	assert.Equal(t, []string{"alpha", "zeta"}, s.Names())
}

func TestScheduler_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	s := scheduler.New(context.Background(), 2, func(ctx context.Context, task scheduler.Task) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return nil
	})

	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		s.Enqueue(name, nil)
	}
	s.Start()
	require.NoError(t, s.Wait())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestScheduler_FirstErrorCancelsRemainingTasks(t *testing.T) {
	boom := errors.New("boom")
	s := scheduler.New(context.Background(), 4, func(ctx context.Context, task scheduler.Task) error {
		if task.Name == "bad" {
			return boom
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	s.Enqueue("slow1", nil)
	s.Enqueue("slow2", nil)
	s.Enqueue("bad", nil)
	start := time.Now()
	s.Start()

	err := s.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"bad"`)
	assert.Less(t, time.Since(start), 2*time.Second)
}
