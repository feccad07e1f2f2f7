// Package trap is the kernel's trap/interrupt dispatcher: it turns a
// faulted or syscalling task's trap frame into a syscall table lookup, a
// page-fault upcall, or a signal delivery, the three things
// kern/trap.c's trap_dispatch/page_fault_handler/signal_handler do before
// handing control back to the scheduler. Grounded on the teacher's
// pkg/sentry/kernel/task_syscall.go doTaskWork style split between
// "figure out what happened" and "let the kernel object mutate state".
package trap

import (
	"github.com/kallsyms/nanokern/internal/klog"
	"github.com/kallsyms/nanokern/internal/metrics"
	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/arch"
	"github.com/kallsyms/nanokern/pkg/kernel"
	"github.com/kallsyms/nanokern/pkg/syscall"
)

// Dispatcher owns the syscall table and routes a task's trap/fault/signal
// events against a Kernel.
type Dispatcher struct {
	K        *kernel.Kernel
	Syscalls *syscall.Table
	Log      *klog.Logger
	Metrics  *metrics.Scheduler
}

// New builds a Dispatcher over k with a freshly populated syscall table.
func New(k *kernel.Kernel, log *klog.Logger, m *metrics.Scheduler) *Dispatcher {
	return &Dispatcher{K: k, Syscalls: syscall.NewTable(), Log: log, Metrics: m}
}

// DispatchSyscall decodes t's trap frame as a syscall entry, invokes the
// matching handler, and writes the return value back into RAX — the Go
// counterpart of trap_dispatch's T_SYSCALL case.
func (d *Dispatcher) DispatchSyscall(t *kernel.Task) {
	no := t.TrapFrame.SyscallNo()
	args := t.TrapFrame.Args()
	ret := d.Syscalls.Invoke(t, d.K, no, args)
	t.TrapFrame.SetReturn(ret)
}

// PageFault is the Go counterpart of page_fault_handler: it resolves
// lazily-allocated pages without involving userspace, and for anything
// else either destroys the faulting task (no upcall installed) or builds a
// UTrapframe on the task's exception stack and redirects it to the upcall.
// writeFault is unused by the simulated MMU (which doesn't distinguish
// read/write faults the way a real page table's dirty bit does) but is
// kept in the signature to mirror the source's FEC_W bit for callers that
// do want to log it.
func (d *Dispatcher) PageFault(t *kernel.Task, faultVA uintptr, writeFault bool) {
	if err := t.Addr.ForceAlloc(faultVA, abi.PageSize); err == nil {
		return
	}

	if t.PgFaultUpcall == 0 {
		if d.Log != nil {
			d.Log.Debugf("trap: [%08x] user fault va=%08x ip=%08x, no upcall", t.ID, faultVA, t.TrapFrame.RIP)
		}
		d.K.Destroy(t, t)
		return
	}

	uxStackBottom := abi.UserExceptionStackTop - abi.PageSize
	if err := t.Addr.ForceAlloc(uxStackBottom, abi.PageSize); err != nil {
		d.K.Destroy(t, t)
		return
	}

	var curUxRsp uintptr
	rsp := t.TrapFrame.RSP
	if rsp < abi.UserExceptionStackTop && rsp > uxStackBottom {
		curUxRsp = rsp - 8 - arch.UTrapframeSize
	} else {
		curUxRsp = abi.UserExceptionStackTop - arch.UTrapframeSize
	}

	if !t.Addr.CheckPerm(curUxRsp, arch.UTrapframeSize, abi.ProtWrite|abi.ProtUser) {
		d.K.Destroy(t, t)
		return
	}

	utf := arch.UTrapframe{
		Err:     t.TrapFrame.ErrCode,
		FaultVA: faultVA,
		Regs:    t.TrapFrame.Regs,
		RFlags:  uint64(t.TrapFrame.RFlags),
		RIP:     t.TrapFrame.RIP,
		RSP:     t.TrapFrame.RSP,
	}
	if err := t.Addr.CopyOut(curUxRsp, utf.Marshal()); err != nil {
		d.K.Destroy(t, t)
		return
	}

	t.TrapFrame.RSP = curUxRsp
	t.TrapFrame.RIP = t.PgFaultUpcall
}

// DeliverPendingSignal checks for a deliverable (non-blocked, queued)
// signal on t and, if one is found, pushes a SignalArgBlock onto t's
// trap-time stack and redirects it to the upcall — the Go counterpart of
// signal_handler. It's meant to be called right after the scheduler
// activates a task, before it's allowed to resume, matching where
// env_run's check4pending_sigs call sits relative to env_pop_tf in the
// source. Returns true if a signal was dequeued, including when it is
// dropped because t has no upcall or its stack cannot take the block.
func (d *Dispatcher) DeliverPendingSignal(t *kernel.Task) bool {
	qs, ok := t.CheckPendingDelivery()
	if !ok {
		return false
	}
	if t.PgFaultUpcall == 0 {
		// No upcall installed: drop the signal rather than crash a task
		// with nowhere to deliver
		// it. sys_sigqueue already special-cases SIGKILL/STOP/CONT before
		// ever enqueuing, so anything reaching here is a caught signal
		// whose upcall was cleared after being queued.
		return true
	}

	if d.Log != nil {
		d.Log.Debugf("trap: [%08x] handling signal %d", t.ID, qs.Info.Signo)
	}

	rsp := arch.AlignSignalStack(t.TrapFrame.RSP)
	// An 8-byte pad slot below the aligned stack pointer makes the 216-byte
	// block itself start on a 16-byte boundary.
	rsp -= 8 + arch.SignalArgBlockSize
	if !t.Addr.CheckPerm(rsp, arch.SignalArgBlockSize, abi.ProtWrite|abi.ProtUser) {
		return true
	}

	block := arch.SignalArgBlock{
		Signal: qs,
		Mask:   uint32(t.SigMask()),
		Resume: arch.UTrapframe{
			Err:     uintptr(qs.Info.Signo),
			FaultVA: 0,
			Regs:    t.TrapFrame.Regs,
			RFlags:  uint64(t.TrapFrame.RFlags),
			RIP:     t.TrapFrame.RIP,
			RSP:     t.TrapFrame.RSP,
		},
	}
	if err := t.Addr.CopyOut(rsp, block.Marshal()); err != nil {
		return true
	}

	t.ApplyDeliveryMask(qs)
	t.TrapFrame.RSP = rsp
	t.TrapFrame.RIP = t.PgFaultUpcall
	if d.Metrics != nil {
		d.Metrics.SignalQueueDepth.Set(float64(t.QueueLen()))
	}
	return true
}
