package kernel

import (
	"sync"

	"github.com/kallsyms/nanokern/internal/klog"
	"github.com/kallsyms/nanokern/internal/metrics"
)

// Kernel is the single mutable context object every subsystem operates
// through: the task table, the currently-running task, and the collaborators
// (logger, metrics) that log/observe lifecycle and scheduling events.
// Threading this explicitly (rather than package-level globals, which is
// what curenv/envs/env_free_list are in the source) is the one place
// spec.md's "Global mutable state" note asks to be made an explicit,
// testable object.
type Kernel struct {
	mu      sync.Mutex
	Table   *Table
	Sched   *Scheduler
	current *Task

	Log     *klog.Logger
	Metrics *metrics.Scheduler
	Console Console
}

// Console is the backing device sys_cputs/sys_cgetc talk to: a non-blocking
// character source/sink, matching the "only their interrupt entry points
// and one non-blocking character read are touched" boundary spec.md draws
// around the console/keyboard/serial drivers.
type Console interface {
	WriteString(s string)
	ReadByte() (b byte, ok bool)
}

// New builds a kernel with a task table of the given capacity (must be a
// power of two).
func New(capacity int, log *klog.Logger, m *metrics.Scheduler) *Kernel {
	table := NewTable(capacity)
	return &Kernel{
		Table:   table,
		Sched:   NewScheduler(table),
		Log:     log,
		Metrics: m,
	}
}

// Current returns the task presently RUNNING, or nil if the CPU is idle.
func (k *Kernel) Current() *Task {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

func (k *Kernel) setCurrent(t *Task) {
	k.mu.Lock()
	k.current = t
	k.mu.Unlock()
}

// Schedule asks the scheduler for the next task to run given whichever one
// is current, updates Current() to match, and reports ok=false when the
// whole table is idle (nothing runnable) — the one entry point the boot
// loop needs into scheduling without reaching past the package boundary
// into Scheduler.Yield and Table directly.
func (k *Kernel) Schedule() (*Task, bool) {
	next, ok := k.Sched.Yield(k.Current())
	k.setCurrent(next)
	if k.Metrics != nil {
		k.Metrics.ContextSwitches.Inc()
		k.Metrics.TaskTableOccupancy.Set(float64(len(k.Table.All())))
	}
	return next, ok
}
