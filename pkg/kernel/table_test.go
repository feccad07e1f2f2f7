package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAllocGenerationNeverRepeats(t *testing.T) {
	table := NewTable(4)
	seen := make(map[ID]bool)

	for round := 0; round < 10; round++ {
		task, err := table.Alloc()
		require.NoError(t, err)
		assert.False(t, seen[task.ID], "id %d reused across generations", task.ID)
		seen[task.ID] = true
		table.Release(task)
	}
}

func TestTableAllocExhaustion(t *testing.T) {
	table := NewTable(2)
	_, err := table.Alloc()
	require.NoError(t, err)
	_, err = table.Alloc()
	require.NoError(t, err)
	_, err = table.Alloc()
	assert.Error(t, err)
}

func TestTableLookupRejectsStaleID(t *testing.T) {
	table := NewTable(4)
	task, err := table.Alloc()
	require.NoError(t, err)
	stale := task.ID
	table.Release(task)

	_, err = table.Lookup(stale, task)
	assert.Error(t, err)
}

func TestTableLookupSelf(t *testing.T) {
	table := NewTable(4)
	task, err := table.Alloc()
	require.NoError(t, err)

	got, err := table.Lookup(0, task)
	require.NoError(t, err)
	assert.Same(t, task, got)
}

func TestTableCheckPermRejectsUnrelatedTask(t *testing.T) {
	table := NewTable(4)
	a, err := table.Alloc()
	require.NoError(t, err)
	b, err := table.Alloc()
	require.NoError(t, err)

	_, err = table.CheckPerm(b.ID, a)
	assert.Error(t, err)

	b.ParentID = a.ID
	_, err = table.CheckPerm(b.ID, a)
	assert.NoError(t, err)
}

func TestNewTableRejectsNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { NewTable(3) })
	assert.Panics(t, func() { NewTable(0) })
}
