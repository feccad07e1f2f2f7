package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunnable(t *testing.T, table *Table) *Task {
	t.Helper()
	task, err := table.Alloc()
	require.NoError(t, err)
	task.Status = StatusRunnable
	return task
}

func TestSchedulerRoundRobinFairness(t *testing.T) {
	table := NewTable(4)
	a := newRunnable(t, table)
	b := newRunnable(t, table)
	c := newRunnable(t, table)
	sched := NewScheduler(table)

	got, ok := sched.Yield(nil)
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID)

	got, ok = sched.Yield(got)
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)

	got, ok = sched.Yield(got)
	require.True(t, ok)
	assert.Equal(t, c.ID, got.ID)

	got, ok = sched.Yield(got)
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID, "scan should wrap back around to the first task")
}

func TestSchedulerSkipsNotRunnableAndStopped(t *testing.T) {
	table := NewTable(4)
	a := newRunnable(t, table)
	b := newRunnable(t, table)
	b.Status = StatusNotRunnable
	c := newRunnable(t, table)
	c.SetStopped(true)
	sched := NewScheduler(table)

	got, ok := sched.Yield(a)
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID, "only a is eligible, scan should land back on it")
}

func TestSchedulerHaltsWhenNothingRunnable(t *testing.T) {
	table := NewTable(2)
	task, err := table.Alloc()
	require.NoError(t, err)
	task.Status = StatusNotRunnable

	sched := NewScheduler(table)
	_, ok := sched.Yield(nil)
	assert.False(t, ok)
}

func TestSchedulerDemotesRunningToRunnable(t *testing.T) {
	table := NewTable(2)
	a := newRunnable(t, table)
	a.Status = StatusRunning
	b := newRunnable(t, table)

	sched := NewScheduler(table)
	got, ok := sched.Yield(a)
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, StatusRunnable, a.Status)
}
