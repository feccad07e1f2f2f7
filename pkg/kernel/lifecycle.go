package kernel

import (
	"github.com/google/uuid"
	"github.com/mohae/deepcopy"

	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/addrspace"
	"github.com/kallsyms/nanokern/pkg/arch"
)

// resetTask clears a slot to the state a freshly allocated task should
// start in, mirroring the field-by-field reset in env_alloc.
func (k *Kernel) resetTask(t *Task, parent *Task) {
	t.Addr = addrspace.New()
	t.Status = StatusRunnable
	t.Type = TypeUser
	t.Runs = 0
	t.TrapFrame = arch.TrapFrame{RFlags: 0x200} // FL_IF equivalent: interrupts enabled
	t.PgFaultUpcall = 0
	t.ImageID = uuid.New()
	t.ipc = ipcState{}
	t.sig = sigState{}

	if parent == nil {
		t.ParentID = 0
		t.sig.actions[abi.SIGUSR1-1] = arch.SigAction{Handler: abi.SigIgn}
		t.sig.actions[abi.SIGUSR2-1] = arch.SigAction{Handler: abi.SigIgn}
		t.sig.actions[abi.SIGCHLD-1] = arch.SigAction{Handler: abi.SigIgn}
		t.sig.actions[abi.SIGCONT-1] = arch.SigAction{Handler: abi.SigIgn}
	} else {
		t.ParentID = parent.ID
		t.Type = parent.Type
		t.sig.actions = deepcopy.Copy(parent.sig.actions).([abi.NSignals]arch.SigAction)
		t.PgFaultUpcall = parent.PgFaultUpcall
	}
}

// CreateTask allocates a new root USER task (parent ID 0), the entry point
// an external loader uses to seed the system with its first task(s),
// standing in for env_create(..., ENV_TYPE_USER) once ELF loading is
// stripped out (out of scope per spec.md §1).
func (k *Kernel) CreateTask() (*Task, error) {
	return k.CreateTaskWithType(TypeUser)
}

// CreateTaskWithType allocates a new root task of the given type, standing
// in for env_create's explicit ENV_TYPE_USER/ENV_TYPE_FS argument. Boot
// sequences use this to seed the one task permitted to call
// map_physical_region (spec.md §4.5's "caller must be FS_SERVER type").
func (k *Kernel) CreateTaskWithType(typ TaskType) (*Task, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	t, err := k.Table.Alloc()
	if err != nil {
		return nil, err
	}
	k.resetTask(t, nil)
	t.Type = typ

	if k.Log != nil {
		k.Log.Infof("[%08x] new task (type=%s)", t.ID, t.Type)
	}
	if k.Metrics != nil {
		k.Metrics.TaskTableOccupancy.Set(float64(len(k.Table.All())))
	}
	return t, nil
}

// Fork allocates a child of parent with parent's signal action table and
// page-fault upcall inherited, the new task left NOT_RUNNABLE and with a
// trap frame copied from the parent but rigged to appear to return 0 — the
// sys_exofork contract: the caller becomes two tasks, and only the child
// observes a zero return value from the syscall that created it.
func (k *Kernel) Fork(parent *Task) (*Task, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	child, err := k.Table.Alloc()
	if err != nil {
		return nil, err
	}
	k.resetTask(child, parent)
	child.Status = StatusNotRunnable
	child.TrapFrame = parent.TrapFrame
	child.TrapFrame.SetReturn(0)

	if k.Log != nil {
		k.Log.Infof("[%08x] forked from [%08x]", child.ID, parent.ID)
	}
	if k.Metrics != nil {
		k.Metrics.TaskTableOccupancy.Set(float64(len(k.Table.All())))
	}
	return child, nil
}

// Destroy tears a task down: releases its address space, posts SIGCHLD to
// its parent (if it has one), and returns its slot to the free list.
// Mirrors env_destroy minus the recursive sched_yield: Destroy never
// reschedules, even when target is the running task, and neither does the
// trap dispatcher; another task runs only on the next Kernel.Schedule call
// (the boot loop makes one every tick).
func (k *Kernel) Destroy(self *Task, target *Task) {
	if target.ParentID != 0 {
		_ = k.SigQueue(target, target.ParentID, abi.SIGCHLD, 0)
	}

	target.Status = StatusDying
	target.Addr.Destroy()

	k.mu.Lock()
	k.Table.Release(target)
	k.mu.Unlock()

	if k.Log != nil {
		if target == self {
			k.Log.Infof("[%08x] exiting gracefully", target.ID)
		} else {
			k.Log.Infof("[%08x] destroying [%08x]", self.ID, target.ID)
		}
	}
	if k.Metrics != nil {
		k.Metrics.TaskTableOccupancy.Set(float64(len(k.Table.All())))
	}
}
