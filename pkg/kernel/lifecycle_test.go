package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallsyms/nanokern/internal/klog"
)

func newTestKernel(t *testing.T, capacity int) *Kernel {
	t.Helper()
	return New(capacity, klog.Default(), nil)
}

func TestCreateTaskRootHasNoParent(t *testing.T) {
	k := newTestKernel(t, 4)
	task, err := k.CreateTask()
	require.NoError(t, err)
	assert.Equal(t, ID(0), task.ParentID)
	assert.Equal(t, StatusRunnable, task.Status)
	assert.Equal(t, TypeUser, task.Type)
}

func TestCreateTaskWithTypeSeedsFSServer(t *testing.T) {
	k := newTestKernel(t, 4)
	task, err := k.CreateTaskWithType(TypeFSServer)
	require.NoError(t, err)
	assert.Equal(t, TypeFSServer, task.Type)
}

func TestForkInheritsParentType(t *testing.T) {
	k := newTestKernel(t, 4)
	parent, err := k.CreateTaskWithType(TypeFSServer)
	require.NoError(t, err)

	child, err := k.Fork(parent)
	require.NoError(t, err)
	assert.Equal(t, TypeFSServer, child.Type)
}

func TestForkCopiesStateAndRigsZeroReturn(t *testing.T) {
	k := newTestKernel(t, 4)
	parent, err := k.CreateTask()
	require.NoError(t, err)
	parent.PgFaultUpcall = 0xdeadbeef
	parent.TrapFrame.RIP = 0x1000

	child, err := k.Fork(parent)
	require.NoError(t, err)

	assert.Equal(t, parent.ID, child.ParentID)
	assert.Equal(t, StatusNotRunnable, child.Status)
	assert.Equal(t, parent.PgFaultUpcall, child.PgFaultUpcall)
	assert.Equal(t, parent.TrapFrame.RIP, child.TrapFrame.RIP)
	assert.EqualValues(t, 0, child.TrapFrame.Regs.RAX, "child must observe a zero return from exofork")
}

func TestDestroyPostsSigchldToParent(t *testing.T) {
	k := newTestKernel(t, 4)
	parent, err := k.CreateTask()
	require.NoError(t, err)
	child, err := k.Fork(parent)
	require.NoError(t, err)

	before := parent.QueueLen()
	k.Destroy(child, child)
	assert.Equal(t, before+1, parent.QueueLen())

	qs, ok := parent.CheckPendingDelivery()
	require.True(t, ok)
	assert.EqualValues(t, 7, qs.Info.Signo) // abi.SIGCHLD
}

func TestDestroyReleasesSlotForReuse(t *testing.T) {
	k := newTestKernel(t, 1)
	task, err := k.CreateTask()
	require.NoError(t, err)

	_, err = k.CreateTask()
	assert.Error(t, err, "table has capacity 1, should be exhausted")

	k.Destroy(task, task)
	_, err = k.CreateTask()
	assert.NoError(t, err, "slot should be reusable after destroy")
}
