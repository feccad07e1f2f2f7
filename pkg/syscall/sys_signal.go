package syscall

import (
	"encoding/binary"

	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/arch"
	"github.com/kallsyms/nanokern/pkg/kernel"
	"github.com/kallsyms/nanokern/pkg/kernerr"
)

// sysSigqueue posts signal sig (with an opaque payload value) to envid,
// wrapping Kernel.SigQueue's full sys_sigqueue semantics (SIGKILL/STOP/CONT
// short-circuits, SA_RESETHAND, queue-full -> E_AGAIN).
func sysSigqueue(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	id := kernel.ID(args[0].Int())
	sig := int(args[1].Int())
	value := args[2].Uint64()

	if err := k.SigQueue(t, id, sig, value); err != nil {
		return 0, err
	}
	return 0, nil
}

// sysSigwait blocks the caller until one of the signals in the user-supplied
// set arrives, optionally writing the number of the signal that woke it to
// sig. Like sysIPCRecv it marks the caller NOT_RUNNABLE, yields, and
// returns 0; the task is picked to run again only once the scheduler's
// ConsumeAwaited finds a matching queued signal.
func sysSigwait(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	setVA := args[0].Pointer()
	sigVA := args[1].Pointer()

	buf := make([]byte, 4)
	if err := t.Addr.CopyIn(setVA, buf); err != nil {
		return 0, err
	}
	set := abi.SigSet(binary.LittleEndian.Uint32(buf))

	if err := t.BeginSigwait(set, sigVA); err != nil {
		return 0, err
	}
	t.Status = kernel.StatusNotRunnable
	t.TrapFrame.SetReturn(0)
	k.Sched.Yield(t)
	return 0, nil
}

// sysSigaction installs a new handler for signo, copying the previous one
// out to oldact when non-null, mirroring sys_sigaction's act/oldact swap.
func sysSigaction(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	signo := int(args[0].Int())
	actVA := args[1].Pointer()
	oldactVA := args[2].Pointer()

	if signo < 1 || signo > abi.NSignals {
		return 0, kernerr.ErrInval
	}

	var act arch.SigAction
	if actVA != 0 {
		buf := make([]byte, arch.SigActionSize)
		if err := t.Addr.CopyIn(actVA, buf); err != nil {
			return 0, err
		}
		act = arch.UnmarshalSigAction(buf)

		old, err := t.SetSigAction(signo, act)
		if err != nil {
			return 0, err
		}
		if oldactVA != 0 {
			if err := t.Addr.CopyOut(oldactVA, old.Marshal()); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	if oldactVA != 0 {
		if err := t.Addr.CopyOut(oldactVA, t.SigAction(signo).Marshal()); err != nil {
			return 0, err
		}
	}
	return 0, nil
}

// sysSigprocmask applies a block/unblock/setmask update to the caller's
// signal mask, copying the previous mask out to oldset when non-null.
func sysSigprocmask(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	how := int(args[0].Int())
	setVA := args[1].Pointer()
	oldsetVA := args[2].Pointer()

	var set abi.SigSet
	if setVA != 0 {
		buf := make([]byte, 4)
		if err := t.Addr.CopyIn(setVA, buf); err != nil {
			return 0, err
		}
		set = abi.SigSet(binary.LittleEndian.Uint32(buf))

		old, err := t.SetSigMask(how, set)
		if err != nil {
			return 0, err
		}
		if oldsetVA != 0 {
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, uint32(old))
			if err := t.Addr.CopyOut(oldsetVA, b); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	if oldsetVA != 0 {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(t.SigMask()))
		if err := t.Addr.CopyOut(oldsetVA, b); err != nil {
			return 0, err
		}
	}
	return 0, nil
}
