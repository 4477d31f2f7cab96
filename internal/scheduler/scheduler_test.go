package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/athebyme/gomarket-orders/internal/adapters/logger"
	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/athebyme/gomarket-orders/internal/utils"
	pkgerrors "github.com/athebyme/gomarket-orders/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls     atomic.Int32
	cancelled atomic.Bool
	release   chan struct{}
	started   chan struct{}
}

func (r *fakeRunner) RunImportCycle(ctx context.Context, now time.Time) *models.ImportRun {
	r.calls.Add(1)
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	if ctx.Err() != nil {
		r.cancelled.Store(true)
	}
	run := models.NewImportRun(now.AddDate(0, 0, -7), now)
	run.Imported = 1
	run.Complete()
	return run
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	lockErr  error
	unlocked int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lockErr != nil {
		return false, l.lockErr
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	l.unlocked++
	return nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, pkgerrors.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Close() error { return nil }

func TestRunNow_StoresLastRun(t *testing.T) {
	runner := &fakeRunner{}
	locker := newFakeLocker()
	cache := newMemoryCache()
	s := New(runner, locker, cache, logger.NewNopLogger(), Config{})

	run, err := s.RunNow(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, int32(1), runner.calls.Load())
	assert.Equal(t, 1, locker.unlocked)
	assert.False(t, s.IsRunning())

	last, err := s.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, run.ID, last.ID)
	assert.Equal(t, models.ImportOutcomeSuccess, last.Outcome)
	assert.Equal(t, 1, last.Imported)
}

func TestRunNow_RejectsConcurrentRun(t *testing.T) {
	runner := &fakeRunner{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := New(runner, nil, nil, logger.NewNopLogger(), Config{})

	errCh := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background())
		errCh <- err
	}()

	<-runner.started
	assert.True(t, s.IsRunning())

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, utils.ErrRunInProgress)

	close(runner.release)
	require.NoError(t, <-errCh)
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestRunNow_IgnoresCallerCancellation(t *testing.T) {
	runner := &fakeRunner{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	locker := newFakeLocker()
	s := New(runner, locker, nil, logger.NewNopLogger(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		run *models.ImportRun
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		run, err := s.RunNow(ctx)
		resCh <- result{run: run, err: err}
	}()

	<-runner.started
	cancel()
	close(runner.release)

	res := <-resCh
	require.NoError(t, res.err)
	assert.Equal(t, models.ImportOutcomeSuccess, res.run.Outcome)
	assert.False(t, runner.cancelled.Load())
	assert.Equal(t, 1, locker.unlocked)
}

func TestRunNow_LockHeldByAnotherProcess(t *testing.T) {
	runner := &fakeRunner{}
	locker := newFakeLocker()
	locker.held[RunLockKey] = true
	s := New(runner, locker, nil, logger.NewNopLogger(), Config{})

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, utils.ErrRunInProgress)
	assert.Zero(t, runner.calls.Load())
	assert.Zero(t, locker.unlocked)
	assert.False(t, s.IsRunning())
}

func TestRunNow_LockError(t *testing.T) {
	runner := &fakeRunner{}
	locker := newFakeLocker()
	locker.lockErr = errors.New("redis down")
	s := New(runner, locker, nil, logger.NewNopLogger(), Config{})

	_, err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, utils.ErrRunInProgress)
	assert.Zero(t, runner.calls.Load())
}

func TestLastRun(t *testing.T) {
	t.Run("no runs yet", func(t *testing.T) {
		s := New(&fakeRunner{}, nil, newMemoryCache(), logger.NewNopLogger(), Config{})

		_, err := s.LastRun(context.Background())
		assert.ErrorIs(t, err, utils.ErrNoImportRuns)
	})

	t.Run("stored by another process", func(t *testing.T) {
		cache := newMemoryCache()
		stored := models.NewImportRun(time.Now().AddDate(0, 0, -7), time.Now())
		stored.CompleteEmpty()
		data, err := json.Marshal(stored)
		require.NoError(t, err)
		require.NoError(t, cache.Set(context.Background(), LastRunKey, data, 0))

		s := New(&fakeRunner{}, nil, cache, logger.NewNopLogger(), Config{})

		last, err := s.LastRun(context.Background())
		require.NoError(t, err)
		assert.Equal(t, stored.ID, last.ID)
		assert.Equal(t, models.ImportOutcomeEmpty, last.Outcome)
	})

	t.Run("without cache", func(t *testing.T) {
		s := New(&fakeRunner{}, nil, nil, logger.NewNopLogger(), Config{})

		run, err := s.RunNow(context.Background())
		require.NoError(t, err)

		last, err := s.LastRun(context.Background())
		require.NoError(t, err)
		assert.Equal(t, run.ID, last.ID)
	})
}

func TestEnable_RunOnEnable(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, newFakeLocker(), nil, logger.NewNopLogger(), Config{
		Interval:    time.Hour,
		RunOnEnable: true,
	})

	require.NoError(t, s.Enable(context.Background()))
	require.NoError(t, s.Enable(context.Background()))
	assert.True(t, s.IsEnabled())

	require.Eventually(t, func() bool {
		return runner.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, s.NextRunAt().IsZero())

	require.NoError(t, s.Disable(context.Background()))
	assert.False(t, s.IsEnabled())
	assert.True(t, s.NextRunAt().IsZero())
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestEnable_WaitsForInterval(t *testing.T) {
	fixed := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	runner := &fakeRunner{}
	s := New(runner, nil, nil, logger.NewNopLogger(), Config{Interval: time.Hour})
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Enable(context.Background()))
	assert.Equal(t, fixed.Add(time.Hour), s.NextRunAt())

	require.NoError(t, s.Disable(context.Background()))
	assert.Zero(t, runner.calls.Load())
}

func TestEnable_RunsOnEveryTick(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, newFakeLocker(), nil, logger.NewNopLogger(), Config{Interval: 10 * time.Millisecond})

	require.NoError(t, s.Enable(context.Background()))
	require.Eventually(t, func() bool {
		return runner.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Disable(context.Background()))
	calls := runner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, runner.calls.Load())
}

func TestEnable_SurvivesCancelledRequestContext(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, nil, nil, logger.NewNopLogger(), Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Enable(ctx))
	cancel()

	require.Eventually(t, func() bool {
		return runner.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Disable(context.Background()))
}

func TestDisable_WaitsForRunningCycle(t *testing.T) {
	runner := &fakeRunner{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := New(runner, nil, nil, logger.NewNopLogger(), Config{
		Interval:    time.Hour,
		RunOnEnable: true,
	})

	require.NoError(t, s.Enable(context.Background()))
	<-runner.started

	disabled := make(chan error, 1)
	go func() {
		disabled <- s.Disable(context.Background())
	}()

	select {
	case <-disabled:
		t.Fatal("Disable вернулся до завершения цикла")
	case <-time.After(20 * time.Millisecond):
	}

	close(runner.release)
	require.NoError(t, <-disabled)
	assert.False(t, runner.cancelled.Load())
	assert.False(t, s.IsRunning())
}

func TestDisable_NotEnabled(t *testing.T) {
	s := New(&fakeRunner{}, nil, nil, logger.NewNopLogger(), Config{})

	assert.NoError(t, s.Disable(context.Background()))
	assert.False(t, s.IsEnabled())
}
