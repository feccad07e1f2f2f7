// Package kernel implements the task table, lifecycle, scheduler, IPC
// rendezvous, and signal delivery that together form the core of the
// simulated kernel. It plays the role gVisor's pkg/sentry/kernel plays for
// its Task/Kernel types: a software kernel with no goroutine-per-task
// illusion, where "running a task" means calling Go functions with a
// *Task receiver.
package kernel

import (
	"github.com/google/uuid"

	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/addrspace"
	"github.com/kallsyms/nanokern/pkg/arch"
)

// Status is a task's scheduling state.
type Status int

const (
	StatusFree Status = iota
	StatusDying
	StatusRunnable
	StatusRunning
	StatusNotRunnable
)

func (s Status) String() string {
	switch s {
	case StatusFree:
		return "FREE"
	case StatusDying:
		return "DYING"
	case StatusRunnable:
		return "RUNNABLE"
	case StatusRunning:
		return "RUNNING"
	case StatusNotRunnable:
		return "NOT_RUNNABLE"
	default:
		return "UNKNOWN"
	}
}

// TaskType is a task's privilege class, matching spec.md §3's
// type ∈ {USER, FS_SERVER, KERNEL} attribute. Only FS_SERVER tasks may
// call sys_map_physical_region; ordinary tasks are TypeUser.
type TaskType int

const (
	TypeUser TaskType = iota
	TypeFSServer
	TypeKernel
)

func (t TaskType) String() string {
	switch t {
	case TypeUser:
		return "USER"
	case TypeFSServer:
		return "FS_SERVER"
	case TypeKernel:
		return "KERNEL"
	default:
		return "UNKNOWN"
	}
}

// SigQueueSize is the fixed depth of a task's pending-signal circular
// queue (spec.md's Q), matching SIG_QUEUE_SIZE.
const SigQueueSize = 16

// ipcState holds the fields spec.md's IPC rendezvous module updates
// directly on a task, exactly as sys_ipc_try_send/sys_ipc_recv do on Env.
type ipcState struct {
	recving bool
	from    ID
	value   uint32
	dstVA   uintptr
	maxSize uintptr
	perm    int
}

// sigState holds everything the signal subsystem reads and mutates on a
// task: its per-signal action table, blocked mask, awaiting mask for
// sigwait, the pointer sigwait should write the caught signal number to,
// and the FIFO circular queue of not-yet-delivered signals.
type sigState struct {
	actions  [abi.NSignals]arch.SigAction
	mask     abi.SigSet
	awaiting abi.SigSet
	caughtVA uintptr
	stopped  bool

	queue      [SigQueueSize]arch.QueuedSignal
	queueStart int
	queueEnd   int
}

// Task is one scheduled entity: the kernel's analog of struct Env.
type Task struct {
	ID       ID
	ParentID ID

	Status Status
	Type   TaskType
	Runs   uint64

	TrapFrame     arch.TrapFrame
	PgFaultUpcall uintptr

	Addr *addrspace.Space

	// ImageID is an opaque debug tag standing in for the loaded binary
	// image that load_icode would otherwise track; this kernel does not
	// implement ELF loading (out of scope per spec.md §1), but every task
	// still carries an identity useful for log correlation.
	ImageID uuid.UUID

	ipc ipcState
	sig sigState
}

// Envid returns the task's public ID, named after envid_t/sys_getenvid in
// the source this is ported from.
func (t *Task) Envid() ID { return t.ID }
