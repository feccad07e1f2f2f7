package kernel

import (
	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/kernerr"
)

func pageAligned(addr uintptr) bool {
	return addr&(abi.PageSize-1) == 0
}

// IPCSend implements the one-shot rendezvous send half: sys_ipc_try_send.
// It fails with ErrIPCNotRecv unless id is currently blocked in IPCRecv. If
// srcVA names a mapped region and the receiver asked for one, the minimum
// of the two requested sizes is mapped (shared, not copied) into the
// receiver's address space before it is woken. The receiver's saved rax is
// cleared at delivery (spec.md §4.6: the sender "clears [the receiver's]
// rax"), since sys_ipc_recv itself always returns 0 and the delivered
// value is read back out via LastIPC, not the syscall's return value.
func (k *Kernel) IPCSend(self *Task, id ID, value uint32, srcVA uintptr, size uintptr, perm int) error {
	k.mu.Lock()
	target, err := k.Table.Lookup(id, self)
	k.mu.Unlock()
	if err != nil {
		return kernerr.ErrBadEnv
	}
	if !target.ipc.recving {
		return kernerr.ErrIPCNotRecv
	}

	if srcVA < abi.MaxUserAddress && target.ipc.dstVA < abi.MaxUserAddress {
		if !pageAligned(srcVA) || !pageAligned(target.ipc.dstVA) {
			return kernerr.ErrInval
		}
		if perm&^abi.ProtAll != 0 {
			return kernerr.ErrInval
		}
		min := size
		if target.ipc.maxSize < min {
			min = target.ipc.maxSize
		}
		if err := target.Addr.Map(target.ipc.dstVA, self.Addr, srcVA, min, perm|abi.ProtUser); err != nil {
			return kernerr.ErrNoMem
		}
		target.ipc.perm = perm
		target.ipc.maxSize = min
	} else {
		target.ipc.perm = 0
	}

	target.ipc.recving = false
	target.ipc.from = self.ID
	target.ipc.value = value
	target.Status = StatusRunnable
	target.TrapFrame.SetReturn(0)

	if k.Log != nil {
		k.Log.Debugf("ipc: [%08x] sent %d to [%08x]", self.ID, value, id)
	}
	return nil
}

// IPCRecv implements the blocking-receive half: sys_ipc_recv. It records
// the task's willingness to receive a mapped region (if dstVA is a valid
// user address) and marks it NOT_RUNNABLE; the caller is expected to yield
// to the scheduler immediately after, the same way sys_ipc_recv's
// sched_yield() never returns to its caller on success.
func (k *Kernel) IPCRecv(self *Task, dstVA uintptr, maxSize uintptr) error {
	if !pageAligned(maxSize) {
		return kernerr.ErrInval
	}
	if dstVA < abi.MaxUserAddress {
		if maxSize == 0 || !pageAligned(dstVA) {
			return kernerr.ErrInval
		}
		self.ipc.maxSize = maxSize
	}
	self.ipc.dstVA = dstVA

	self.Status = StatusNotRunnable
	self.ipc.recving = true
	self.TrapFrame.SetReturn(0)
	return nil
}

// IPCResult reports the fields a woken receiver reads back out after its
// sys_ipc_recv syscall resumes: who sent, what value, and what permission
// (0 if no region was transferred).
type IPCResult struct {
	From  ID
	Value uint32
	Perm  int
}

// LastIPC returns the most recent IPCResult delivered to t.
func (t *Task) LastIPC() IPCResult {
	return IPCResult{From: t.ipc.from, Value: t.ipc.value, Perm: t.ipc.perm}
}
