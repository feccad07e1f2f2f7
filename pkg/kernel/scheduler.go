package kernel

import "encoding/binary"

// Scheduler implements the single-CPU cooperative round-robin policy:
// starting just after whichever task last ran, scan for the first
// RUNNABLE (or still-RUNNING) task that isn't SIGSTOPped and isn't
// blocked in a sigwait with nothing deliverable yet. Ported from
// sched_yield's scan loop.
type Scheduler struct {
	table *Table
}

// NewScheduler builds a scheduler over the given task table.
func NewScheduler(table *Table) *Scheduler {
	return &Scheduler{table: table}
}

// Yield transitions current (if any, and if still RUNNING) back to
// RUNNABLE, then scans for the next eligible task to activate. Returns the
// activated task and true, or (nil, false) if nothing is runnable — the
// Go analog of sched_halt, which the caller should treat as "idle the CPU
// until the next tick or IRQ".
func (s *Scheduler) Yield(current *Task) (*Task, bool) {
	if current != nil && current.Status == StatusRunning {
		current.Status = StatusRunnable
	}

	start := -1
	if current != nil {
		start = s.table.slotOf(current)
	}

	idx := start
	for i := 0; i < s.table.capacity+1; i++ {
		idx = (idx + 1) % s.table.capacity
		task := s.table.taskAt(idx)

		sigwaiting := task.Status == StatusNotRunnable && task.Awaiting() != 0
		if task.Status != StatusRunnable && task.Status != StatusRunning && !sigwaiting {
			continue
		}
		if task.Stopped() {
			continue
		}
		if task.Awaiting() != 0 {
			qs, ok := task.ConsumeAwaited()
			if !ok {
				continue
			}
			if va := task.CaughtVA(); va != 0 {
				var buf [4]byte
				binary.LittleEndian.PutUint32(buf[:], uint32(qs.Info.Signo))
				_ = task.Addr.CopyOut(va, buf[:])
			}
		}

		task.Status = StatusRunning
		task.Runs++
		return task, true
	}

	return nil, false
}
