package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/maxsupply/internal/domain/capacity/entity"
)

type loaderFunc func(ctx context.Context, call int64) (*entity.CapacityStatistics, error)

type fakeLoader struct {
	calls atomic.Int64
	fn    loaderFunc
}

func (l *fakeLoader) GetStatistics(ctx context.Context, _ entity.JobFilter) (*entity.CapacityStatistics, error) {
	n := l.calls.Add(1)
	return l.fn(ctx, n)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefresher_CoalescesBurst(t *testing.T) {
	loader := &fakeLoader{fn: func(context.Context, int64) (*entity.CapacityStatistics, error) {
		return &entity.CapacityStatistics{Total: 7}, nil
	}}
	r := New(loader, Config{Debounce: 50 * time.Millisecond}, discardLogger())

	r.Start(context.Background())
	defer r.Stop()

	for i := 0; i < 10; i++ {
		r.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return r.Latest() != nil }, time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, int64(1), loader.calls.Load())
	assert.Equal(t, 7, r.Latest().Statistics.Total)
	assert.Equal(t, uint64(1), r.Latest().Token)
}

func TestRefresher_NewestRunWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	loader := &fakeLoader{fn: func(_ context.Context, call int64) (*entity.CapacityStatistics, error) {
		if call == 1 {
			close(started)
			// ignores cancellation and finishes late
			<-release
			return &entity.CapacityStatistics{Total: 1}, nil
		}
		return &entity.CapacityStatistics{Total: 2}, nil
	}}
	r := New(loader, Config{Debounce: 10 * time.Millisecond}, discardLogger())

	r.Start(context.Background())

	<-started
	r.Trigger()

	require.Eventually(t, func() bool {
		s := r.Latest()
		return s != nil && s.Token == 2
	}, time.Second, 5*time.Millisecond)

	close(release)
	time.Sleep(50 * time.Millisecond)

	snap := r.Latest()
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.Statistics.Total)
	assert.Equal(t, uint64(2), snap.Token)

	r.Stop()
}

func TestRefresher_CancelsSupersededRun(t *testing.T) {
	var cancelled atomic.Bool
	started := make(chan struct{})
	var once sync.Once

	loader := &fakeLoader{fn: func(ctx context.Context, call int64) (*entity.CapacityStatistics, error) {
		if call == 1 {
			once.Do(func() { close(started) })
			<-ctx.Done()
			cancelled.Store(true)
			return nil, ctx.Err()
		}
		return &entity.CapacityStatistics{Total: 3}, nil
	}}
	r := New(loader, Config{Debounce: 10 * time.Millisecond}, discardLogger())

	r.Start(context.Background())
	defer r.Stop()

	<-started
	r.Trigger()

	require.Eventually(t, func() bool { return r.Latest() != nil }, time.Second, 5*time.Millisecond)
	assert.True(t, cancelled.Load())
	assert.Equal(t, 3, r.Latest().Statistics.Total)
}

func TestRefresher_PeriodicInterval(t *testing.T) {
	loader := &fakeLoader{fn: func(context.Context, int64) (*entity.CapacityStatistics, error) {
		return &entity.CapacityStatistics{}, nil
	}}
	r := New(loader, Config{Debounce: 5 * time.Millisecond, Interval: 20 * time.Millisecond}, discardLogger())

	r.Start(context.Background())
	defer r.Stop()

	require.Eventually(t, func() bool { return loader.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestRefresher_StopIsIdempotent(t *testing.T) {
	started := make(chan struct{})
	loader := &fakeLoader{fn: func(ctx context.Context, _ int64) (*entity.CapacityStatistics, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	r := New(loader, Config{Debounce: time.Millisecond}, discardLogger())

	r.Start(context.Background())
	<-started

	done := make(chan struct{})
	go func() {
		r.Stop()
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Nil(t, r.Latest())
}

func TestRefresher_RestartAfterStop(t *testing.T) {
	loader := &fakeLoader{fn: func(_ context.Context, call int64) (*entity.CapacityStatistics, error) {
		return &entity.CapacityStatistics{Total: int(call)}, nil
	}}
	r := New(loader, Config{Debounce: time.Millisecond}, discardLogger())

	r.Start(context.Background())
	require.Eventually(t, func() bool { return loader.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	r.Stop()

	r.Start(context.Background())
	require.Eventually(t, func() bool { return loader.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() {
		r.Stop()
		r.Stop()
	})
}

func TestRefresher_TriggerNeverBlocks(t *testing.T) {
	r := New(&fakeLoader{}, Config{}, discardLogger())

	// not started: the buffered slot fills and the rest are dropped
	for i := 0; i < 100; i++ {
		r.Trigger()
	}
	assert.Nil(t, r.Latest())
}
