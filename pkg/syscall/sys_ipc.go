package syscall

import (
	"github.com/kallsyms/nanokern/pkg/arch"
	"github.com/kallsyms/nanokern/pkg/kernel"
)

// sysIPCTrySend is the non-blocking half of the rendezvous: it either hands
// value/region straight to a receiver already waiting on the caller, or
// fails with E_IPC_NOT_RECV so userspace can retry after a yield.
func sysIPCTrySend(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	id := kernel.ID(args[0].Int())
	value := uint32(args[1].Uint())
	srcVA := args[2].Pointer()
	size := args[3].SizeT()
	perm := int(args[4].Int())

	if err := k.IPCSend(t, id, value, srcVA, size, perm); err != nil {
		return 0, err
	}
	return 0, nil
}

// sysIPCRecv blocks the caller (by marking it NOT_RUNNABLE and yielding)
// until a sender targets it. Like sysSigwait, it always returns 0: the
// sender clears the receiver's rax at delivery time (spec.md §4.6), long
// after this call has returned to the dispatcher, so the delivered value
// is read back out via the task's LastIPC snapshot, never this return value.
func sysIPCRecv(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	dstVA := args[0].Pointer()
	maxSize := args[1].SizeT()

	if err := k.IPCRecv(t, dstVA, maxSize); err != nil {
		return 0, err
	}
	k.Sched.Yield(t)
	return 0, nil
}
