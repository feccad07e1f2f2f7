package trap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallsyms/nanokern/internal/klog"
	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/arch"
	"github.com/kallsyms/nanokern/pkg/kernel"
)

func newDispatcher(t *testing.T) (*Dispatcher, *kernel.Kernel) {
	t.Helper()
	k := kernel.New(4, klog.Default(), nil)
	return New(k, klog.Default(), nil), k
}

func TestPageFaultLazyAllocResolvesWithoutUpcall(t *testing.T) {
	d, k := newDispatcher(t)
	task, err := k.CreateTask()
	require.NoError(t, err)
	require.NoError(t, task.Addr.Map(0x4000, nil, 0, abi.PageSize, abi.ProtRead|abi.ProtWrite|abi.ProtUser|abi.ProtLazy))

	d.PageFault(task, 0x4000, true)
	assert.NotEqual(t, kernel.StatusFree, task.Status, "a lazily-backed fault should resolve without destroying the task")
}

func TestPageFaultWithoutUpcallDestroysTask(t *testing.T) {
	d, k := newDispatcher(t)
	task, err := k.CreateTask()
	require.NoError(t, err)
	// No mapping at all at this address and no upcall installed.
	d.PageFault(task, 0x9000, false)
	assert.Equal(t, kernel.StatusFree, task.Status, "a destroyed task's slot is released to the free list")
}

func TestPageFaultWithUpcallBuildsUTrapframeOnExceptionStack(t *testing.T) {
	d, k := newDispatcher(t)
	task, err := k.CreateTask()
	require.NoError(t, err)
	task.PgFaultUpcall = 0xc0ffee
	task.TrapFrame.RSP = 0x7000
	task.TrapFrame.RIP = 0x1234

	uxStackBottom := abi.UserExceptionStackTop - abi.PageSize
	require.NoError(t, task.Addr.Map(uxStackBottom, nil, 0, abi.PageSize, abi.ProtRead|abi.ProtWrite|abi.ProtUser|abi.ProtLazy))
	require.False(t, task.Addr.CheckPerm(0x9000, abi.PageSize, 0), "the fault address must be unmapped so the lazy-alloc fast path cannot resolve it")

	d.PageFault(task, 0x9000, false)

	assert.Equal(t, task.PgFaultUpcall, task.TrapFrame.RIP, "trap frame should redirect to the upcall")
	assert.Equal(t, abi.UserExceptionStackTop-arch.UTrapframeSize, task.TrapFrame.RSP)

	buf := make([]byte, arch.UTrapframeSize)
	require.NoError(t, task.Addr.CopyIn(task.TrapFrame.RSP, buf))
	utf := arch.UnmarshalUTrapframe(buf)
	assert.EqualValues(t, 0x9000, utf.FaultVA)
	assert.EqualValues(t, 0x1234, utf.RIP)
}

func TestDeliverPendingSignalPushesArgBlockAndRedirects(t *testing.T) {
	d, k := newDispatcher(t)
	task, err := k.CreateTask()
	require.NoError(t, err)
	task.PgFaultUpcall = 0xc0ffee
	task.TrapFrame.RSP = 0x7000
	require.NoError(t, task.Addr.Map(0x6000, nil, 0, abi.PageSize, abi.ProtRead|abi.ProtWrite|abi.ProtUser))

	require.NoError(t, k.SigQueue(task, task.ID, abi.SIGUSR1, 0))

	delivered := d.DeliverPendingSignal(task)
	assert.True(t, delivered)
	assert.Equal(t, task.PgFaultUpcall, task.TrapFrame.RIP)
	assert.NotEqual(t, uintptr(0x7000), task.TrapFrame.RSP)

	buf := make([]byte, arch.SignalArgBlockSize)
	require.NoError(t, task.Addr.CopyIn(task.TrapFrame.RSP, buf))
	block := arch.UnmarshalQueuedSignal(buf[:arch.QueuedSigSize])
	assert.EqualValues(t, abi.SIGUSR1, block.Info.Signo)
}

func TestDeliverPendingSignalNoopWhenQueueEmpty(t *testing.T) {
	d, k := newDispatcher(t)
	task, err := k.CreateTask()
	require.NoError(t, err)
	assert.False(t, d.DeliverPendingSignal(task))
}
