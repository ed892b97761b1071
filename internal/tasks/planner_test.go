package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	ticks    atomic.Int32
	sweeps   atomic.Int32
	archives atomic.Int32
	err      error
}

func (f *fakeEngine) TickAll(ctx context.Context) (int, error) {
	f.ticks.Add(1)
	return 1, f.err
}

func (f *fakeEngine) Sweep(ctx context.Context) (int, error) {
	f.sweeps.Add(1)
	return 0, f.err
}

func (f *fakeEngine) ArchiveDrained(ctx context.Context) ([]string, error) {
	f.archives.Add(1)
	return []string{"q1"}, f.err
}

func TestInitSchedulerRejectsBadInterval(t *testing.T) {
	_, err := InitScheduler(&fakeEngine{}, Intervals{Release: time.Second, Sweep: 0, Archive: time.Second})
	assert.Error(t, err)
}

func TestJobsCallEngine(t *testing.T) {
	eng := &fakeEngine{}
	p, err := InitScheduler(eng, Intervals{Release: time.Second, Sweep: time.Second, Archive: time.Second})
	require.NoError(t, err)

	p.ReleaseTick()
	p.SweepNoShows()
	p.ArchiveDrained()
	assert.EqualValues(t, 1, eng.ticks.Load())
	assert.EqualValues(t, 1, eng.sweeps.Load())
	assert.EqualValues(t, 1, eng.archives.Load())

	// Ошибки логируются и не роняют задачу.
	eng.err = errors.New("busy")
	assert.NotPanics(t, p.ReleaseTick)
	assert.NotPanics(t, p.ArchiveDrained)
}

func TestPlannerRunsOnSchedule(t *testing.T) {
	eng := &fakeEngine{}
	p, err := InitScheduler(eng, Intervals{Release: time.Second, Sweep: time.Hour, Archive: time.Hour})
	require.NoError(t, err)

	p.Start()
	assert.Eventually(t, func() bool { return eng.ticks.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.Zero(t, eng.sweeps.Load())
}
