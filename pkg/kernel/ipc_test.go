package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/addrspace"
)

func TestIPCSendFailsWithoutAWaitingReceiver(t *testing.T) {
	k := newTestKernel(t, 4)
	sender, err := k.CreateTask()
	require.NoError(t, err)
	receiver, err := k.CreateTask()
	require.NoError(t, err)

	err = k.IPCSend(sender, receiver.ID, 42, 0, 0, 0)
	assert.Error(t, err)
}

func TestIPCRoundTripDeliversValueAndRegion(t *testing.T) {
	k := newTestKernel(t, 4)
	sender, err := k.CreateTask()
	require.NoError(t, err)
	receiver, err := k.CreateTask()
	require.NoError(t, err)

	const dstVA = 0x2000
	require.NoError(t, k.IPCRecv(receiver, dstVA, abi.PageSize))
	assert.Equal(t, StatusNotRunnable, receiver.Status)

	const srcVA = 0x3000
	require.NoError(t, sender.Addr.Map(srcVA, nil, 0, abi.PageSize, abi.ProtRead|abi.ProtWrite|abi.ProtUser))
	payload := []byte("mailbox")
	require.NoError(t, sender.Addr.CopyOut(srcVA, payload))

	receiver.TrapFrame.Regs.RAX = 0xdeadbeef // stale value from a prior syscall
	require.NoError(t, k.IPCSend(sender, receiver.ID, 99, srcVA, abi.PageSize, abi.ProtRead))
	assert.Equal(t, StatusRunnable, receiver.Status)
	assert.Zero(t, receiver.TrapFrame.Regs.RAX, "rax in the receiver must read 0 on delivery")

	result := receiver.LastIPC()
	assert.Equal(t, sender.ID, result.From)
	assert.EqualValues(t, 99, result.Value)

	got := make([]byte, len(payload))
	require.NoError(t, receiver.Addr.CopyIn(dstVA, got))
	assert.Equal(t, payload, got)
}

func TestIPCSendWithoutRegionJustDeliversValue(t *testing.T) {
	k := newTestKernel(t, 4)
	sender, err := k.CreateTask()
	require.NoError(t, err)
	receiver, err := k.CreateTask()
	require.NoError(t, err)

	require.NoError(t, k.IPCRecv(receiver, abi.MaxUserAddress, 0))
	require.NoError(t, k.IPCSend(sender, receiver.ID, 7, abi.MaxUserAddress, 0, 0))

	result := receiver.LastIPC()
	assert.EqualValues(t, 7, result.Value)
	assert.Zero(t, result.Perm)
}

func TestAddrspaceMapAliasesRatherThanCopies(t *testing.T) {
	a := addrspace.New()
	b := addrspace.New()
	require.NoError(t, a.Map(0x1000, nil, 0, abi.PageSize, abi.ProtRead|abi.ProtWrite|abi.ProtUser))
	require.NoError(t, a.CopyOut(0x1000, []byte("hi")))
	require.NoError(t, b.Map(0x5000, a, 0x1000, abi.PageSize, abi.ProtRead|abi.ProtUser))

	got := make([]byte, 2)
	require.NoError(t, b.CopyIn(0x5000, got))
	assert.Equal(t, "hi", string(got))
	assert.Equal(t, 2, a.MaxRefs(0x1000, abi.PageSize))
}
