// Package syscall is the kernel's syscall surface: a table of
// Func-shaped handlers keyed by syscall number, adapted from gVisor's
// pkg/sentry/syscalls package, where every syscall is a plain
// func(*kernel.Task, sysno uintptr, args arch.SyscallArguments)
// (uintptr, error) — no trap-frame plumbing inside the handler itself,
// just a typed argument vector in and a return value/error out.
package syscall

import (
	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/arch"
	"github.com/kallsyms/nanokern/pkg/kernel"
	"github.com/kallsyms/nanokern/pkg/kernerr"
)

// Func is the shape every syscall handler implements.
type Func func(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error)

// Syscall pairs a handler with the name used in logging, the same small
// registration record Supported/Error/CapError build in the teacher
// package.
type Syscall struct {
	Name string
	Fn   Func
}

// Table is the syscall number -> handler map the dispatcher routes
// through.
type Table struct {
	entries map[uintptr]Syscall
}

// NewTable builds the fixed syscall table for this kernel.
func NewTable() *Table {
	t := &Table{entries: make(map[uintptr]Syscall)}
	t.register(abi.SysCputs, "cputs", sysCputs)
	t.register(abi.SysCgetc, "cgetc", sysCgetc)
	t.register(abi.SysGetenvid, "getenvid", sysGetenvid)
	t.register(abi.SysEnvDestroy, "env_destroy", sysEnvDestroy)
	t.register(abi.SysAllocRegion, "alloc_region", sysAllocRegion)
	t.register(abi.SysMapRegion, "map_region", sysMapRegion)
	t.register(abi.SysMapPhysicalRegion, "map_physical_region", sysMapPhysicalRegion)
	t.register(abi.SysUnmapRegion, "unmap_region", sysUnmapRegion)
	t.register(abi.SysRegionRefs, "region_refs", sysRegionRefs)
	t.register(abi.SysExofork, "exofork", sysExofork)
	t.register(abi.SysEnvSetStatus, "env_set_status", sysEnvSetStatus)
	t.register(abi.SysEnvSetTrapframe, "env_set_trapframe", sysEnvSetTrapframe)
	t.register(abi.SysEnvSetPgfaultUpcall, "env_set_pgfault_upcall", sysEnvSetPgfaultUpcall)
	t.register(abi.SysYield, "yield", sysYield)
	t.register(abi.SysIPCTrySend, "ipc_try_send", sysIPCTrySend)
	t.register(abi.SysIPCRecv, "ipc_recv", sysIPCRecv)
	t.register(abi.SysGettime, "gettime", sysGettime)
	t.register(abi.SysSigqueue, "sigqueue", sysSigqueue)
	t.register(abi.SysSigwait, "sigwait", sysSigwait)
	t.register(abi.SysSigaction, "sigaction", sysSigaction)
	t.register(abi.SysSigprocmask, "sigprocmask", sysSigprocmask)
	return t
}

func (t *Table) register(no uintptr, name string, fn Func) {
	t.entries[no] = Syscall{Name: name, Fn: fn}
}

// Lookup returns the handler registered for no, if any.
func (t *Table) Lookup(no uintptr) (Syscall, bool) {
	s, ok := t.entries[no]
	return s, ok
}

// Invoke dispatches syscall number no with args against task t, returning
// the raw (uintptr) return value syscall()'s switch statement would have
// produced — including the negative-errno encoding for error returns.
func (t *Table) Invoke(task *kernel.Task, k *kernel.Kernel, no uintptr, args arch.SyscallArguments) uintptr {
	s, ok := t.entries[no]
	if !ok {
		return uintptr(kernerr.Errno(kernerr.ErrNoSys))
	}
	ret, err := s.Fn(task, k, args)
	if err != nil {
		return uintptr(kernerr.Errno(err))
	}
	return ret
}
