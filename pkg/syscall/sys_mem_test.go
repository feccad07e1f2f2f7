package syscall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallsyms/nanokern/internal/klog"
	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/arch"
	"github.com/kallsyms/nanokern/pkg/kernel"
	"github.com/kallsyms/nanokern/pkg/kernerr"
)

func newTestKernel(t *testing.T, capacity int) *kernel.Kernel {
	t.Helper()
	return kernel.New(capacity, klog.Default(), nil)
}

func TestSysMapPhysicalRegionRejectsNonFSServerCaller(t *testing.T) {
	k := newTestKernel(t, 4)
	task, err := k.CreateTask()
	require.NoError(t, err)

	args := arch.SyscallArguments{
		{Value: 0x100000},
		{Value: uintptr(task.ID)},
		{Value: 0x4000},
		{Value: abi.PageSize},
		{Value: uintptr(abi.ProtRead)},
	}
	_, err = sysMapPhysicalRegion(task, k, args)
	assert.ErrorIs(t, err, kernerr.ErrBadEnv)
}

func TestSysMapPhysicalRegionAllowsFSServerCaller(t *testing.T) {
	k := newTestKernel(t, 4)
	task, err := k.CreateTaskWithType(kernel.TypeFSServer)
	require.NoError(t, err)

	args := arch.SyscallArguments{
		{Value: 0x100000},
		{Value: uintptr(task.ID)},
		{Value: 0x4000},
		{Value: abi.PageSize},
		{Value: uintptr(abi.ProtRead)},
	}
	_, err = sysMapPhysicalRegion(task, k, args)
	assert.NoError(t, err)
}
