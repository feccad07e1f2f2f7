package syscall

import (
	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/arch"
	"github.com/kallsyms/nanokern/pkg/kernel"
	"github.com/kallsyms/nanokern/pkg/kernerr"
)

// sysCputs writes len bytes starting at the user pointer s to the console,
// matching sys_cputs's read-permission check and byte-by-byte write.
func sysCputs(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	s, size := args[0].Pointer(), args[1].SizeT()
	if !t.Addr.CheckPerm(s, size, abi.ProtRead|abi.ProtUser) {
		return 0, kernerr.ErrInval
	}
	buf := make([]byte, size)
	if err := t.Addr.CopyIn(s, buf); err != nil {
		return 0, err
	}
	if k.Console != nil {
		k.Console.WriteString(string(buf))
	}
	return 0, nil
}

// sysCgetc reads one character from the console without blocking, 0 if
// none is waiting.
func sysCgetc(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	if k.Console == nil {
		return 0, nil
	}
	b, ok := k.Console.ReadByte()
	if !ok {
		return 0, nil
	}
	return uintptr(b), nil
}

// sysGetenvid returns the caller's own task ID.
func sysGetenvid(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	return uintptr(t.ID), nil
}

// sysEnvDestroy destroys the named task (possibly the caller).
func sysEnvDestroy(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	id := kernel.ID(args[0].Int())
	target, err := k.Table.Lookup(id, t)
	if err != nil {
		return 0, kernerr.ErrBadEnv
	}
	k.Destroy(t, target)
	return 0, nil
}

// sysYield deschedules the caller and lets the scheduler pick another
// task.
func sysYield(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	k.Sched.Yield(t)
	return 0, nil
}

// sysExofork allocates a new child task, left NOT_RUNNABLE, with the
// caller's register state copied in but rigged to observe a zero return
// value — the fork-without-exec primitive the rest of the process-control
// surface is built on.
func sysExofork(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	child, err := k.Fork(t)
	if err != nil {
		return 0, err
	}
	return uintptr(child.ID), nil
}

// sysEnvSetStatus sets a task's RUNNABLE/NOT_RUNNABLE status.
func sysEnvSetStatus(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	target, err := k.Table.CheckPerm(kernel.ID(args[0].Int()), t)
	if err != nil {
		return 0, kernerr.ErrBadEnv
	}
	status := kernel.Status(args[1].Int())
	if status != kernel.StatusRunnable && status != kernel.StatusNotRunnable {
		return 0, kernerr.ErrInval
	}
	target.Status = status
	return 0, nil
}

// sysEnvSetPgfaultUpcall installs a task's page-fault/signal upcall
// address.
func sysEnvSetPgfaultUpcall(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	target, err := k.Table.CheckPerm(kernel.ID(args[0].Int()), t)
	if err != nil {
		return 0, kernerr.ErrBadEnv
	}
	target.PgFaultUpcall = args[1].Pointer()
	return 0, nil
}

// sysEnvSetTrapframe overwrites a task's saved trap frame from one the
// caller provides, forcing safe selectors/flags the way the source's
// privilege-escalation guard does (here: keeping only the caller's low 12
// rflags bits, clearing all higher ones, then forcing interrupts enabled).
func sysEnvSetTrapframe(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	target, err := k.Table.CheckPerm(kernel.ID(args[0].Int()), t)
	if err != nil {
		return 0, kernerr.ErrBadEnv
	}
	userTF := args[1].Pointer()
	buf := make([]byte, arch.UTrapframeSize)
	if err := t.Addr.CopyIn(userTF, buf); err != nil {
		return 0, err
	}
	utf := arch.UnmarshalUTrapframe(buf)

	target.TrapFrame.Regs = utf.Regs
	target.TrapFrame.RIP = utf.RIP
	target.TrapFrame.RSP = utf.RSP
	target.TrapFrame.RFlags = (utf.RFlags & 0xFFF) | 0x200 // force interrupts enabled
	return 0, nil
}
