package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/addrspace"
	"github.com/kallsyms/nanokern/pkg/arch"
)

func newTaskWithUpcall(t *testing.T, table *Table) *Task {
	t.Helper()
	task, err := table.Alloc()
	require.NoError(t, err)
	task.Addr = addrspace.New()
	task.PgFaultUpcall = 0x1000
	return task
}

func TestSignalQueueFIFOOrder(t *testing.T) {
	table := NewTable(2)
	task := newTaskWithUpcall(t, table)

	require.NoError(t, task.enqueue(arch.QueuedSignal{Info: arch.SigInfo{Signo: abi.SIGUSR1}}))
	require.NoError(t, task.enqueue(arch.QueuedSignal{Info: arch.SigInfo{Signo: abi.SIGUSR2}}))

	first, ok := task.CheckPendingDelivery()
	require.True(t, ok)
	assert.EqualValues(t, abi.SIGUSR1, first.Info.Signo)

	second, ok := task.CheckPendingDelivery()
	require.True(t, ok)
	assert.EqualValues(t, abi.SIGUSR2, second.Info.Signo)
}

func TestSigMaskBlocksDelivery(t *testing.T) {
	table := NewTable(2)
	task := newTaskWithUpcall(t, table)

	_, err := task.SetSigMask(abi.SigBlock, abi.SignalMask(abi.SIGUSR1))
	require.NoError(t, err)
	require.NoError(t, task.enqueue(arch.QueuedSignal{Info: arch.SigInfo{Signo: abi.SIGUSR1}}))

	_, ok := task.CheckPendingDelivery()
	assert.False(t, ok, "blocked signal must not be delivered")

	_, err = task.SetSigMask(abi.SigUnblock, abi.SignalMask(abi.SIGUSR1))
	require.NoError(t, err)
	qs, ok := task.CheckPendingDelivery()
	require.True(t, ok)
	assert.EqualValues(t, abi.SIGUSR1, qs.Info.Signo)
}

func TestSigMaskNeverBlocksKillStopCont(t *testing.T) {
	table := NewTable(2)
	task := newTaskWithUpcall(t, table)

	_, err := task.SetSigMask(abi.SigSetMask, abi.SigSet(^uint32(0)))
	require.NoError(t, err)
	assert.Zero(t, task.SigMask()&abi.SignalMask(abi.SIGKILL))
	assert.Zero(t, task.SigMask()&abi.SignalMask(abi.SIGSTOP))
	assert.Zero(t, task.SigMask()&abi.SignalMask(abi.SIGCONT))
}

func TestSigactionRejectsUncatchableSignals(t *testing.T) {
	table := NewTable(2)
	task := newTaskWithUpcall(t, table)

	for _, sig := range []int{abi.SIGKILL, abi.SIGSTOP, abi.SIGCONT} {
		_, err := task.SetSigAction(sig, arch.SigAction{Handler: 0x2000})
		assert.Error(t, err)
	}
}

func TestEnqueueReturnsAgainWhenFull(t *testing.T) {
	table := NewTable(2)
	task := newTaskWithUpcall(t, table)

	var lastErr error
	for i := 0; i < SigQueueSize; i++ {
		lastErr = task.enqueue(arch.QueuedSignal{Info: arch.SigInfo{Signo: abi.SIGUSR1}})
	}
	assert.Error(t, lastErr, "the (SigQueueSize)th enqueue should find the circular buffer full")
	assert.Equal(t, SigQueueSize-1, task.QueueLen())
}

func TestSigwaitConsumesExactlyOneMatchingSignal(t *testing.T) {
	table := NewTable(2)
	task := newTaskWithUpcall(t, table)

	require.NoError(t, task.enqueue(arch.QueuedSignal{Info: arch.SigInfo{Signo: abi.SIGUSR1}}))
	require.NoError(t, task.enqueue(arch.QueuedSignal{Info: arch.SigInfo{Signo: abi.SIGUSR2}}))

	require.NoError(t, task.BeginSigwait(abi.SignalMask(abi.SIGUSR1), 0))
	before := task.QueueLen()

	qs, ok := task.ConsumeAwaited()
	require.True(t, ok)
	assert.EqualValues(t, abi.SIGUSR1, qs.Info.Signo)
	assert.Equal(t, before-1, task.QueueLen())
	assert.Zero(t, task.Awaiting(), "sigwait state should clear once satisfied")

	remaining, ok := task.CheckPendingDelivery()
	require.True(t, ok)
	assert.EqualValues(t, abi.SIGUSR2, remaining.Info.Signo, "FIFO order of the untouched entry must survive the dequeue")
}

func TestSigwaitIgnoresBlockedMaskForItsOwnSet(t *testing.T) {
	table := NewTable(2)
	task := newTaskWithUpcall(t, table)

	_, err := task.SetSigMask(abi.SigBlock, abi.SignalMask(abi.SIGUSR1))
	require.NoError(t, err)
	require.NoError(t, task.enqueue(arch.QueuedSignal{Info: arch.SigInfo{Signo: abi.SIGUSR1}}))
	require.NoError(t, task.BeginSigwait(abi.SignalMask(abi.SIGUSR1), 0))

	qs, ok := task.ConsumeAwaited()
	require.True(t, ok, "a task in sigwait must be woken even by a signal it has blocked")
	assert.EqualValues(t, abi.SIGUSR1, qs.Info.Signo)
}

func TestSAResetHandRevertsToIgnoreForChldLikeSignals(t *testing.T) {
	table := NewTable(2)
	task := newTaskWithUpcall(t, table)

	_, err := task.SetSigAction(abi.SIGCHLD, arch.SigAction{Handler: 0x2000, Flags: abi.SAResetHand})
	require.NoError(t, err)

	k := &Kernel{Table: table, Sched: NewScheduler(table)}
	require.NoError(t, k.SigQueue(task, task.ID, abi.SIGCHLD, 0))

	reverted := task.SigAction(abi.SIGCHLD)
	assert.Equal(t, abi.SigIgn, reverted.Handler)
	assert.Zero(t, reverted.Flags&abi.SASigInfo)
}

func TestSAResetHandRevertsToDefaultForOtherSignals(t *testing.T) {
	table := NewTable(2)
	task := newTaskWithUpcall(t, table)

	_, err := task.SetSigAction(abi.SIGTERM, arch.SigAction{Handler: 0x2000, Flags: abi.SAResetHand})
	require.NoError(t, err)

	k := &Kernel{Table: table, Sched: NewScheduler(table)}
	require.NoError(t, k.SigQueue(task, task.ID, abi.SIGTERM, 0))

	reverted := task.SigAction(abi.SIGTERM)
	assert.Equal(t, abi.SigDfl, reverted.Handler)
}
