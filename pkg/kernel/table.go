package kernel

import (
	"fmt"

	"github.com/kallsyms/nanokern/pkg/kernerr"
)

// Table is the fixed-capacity task table: a slot array plus a free list
// threaded through it, mirroring envs[]/env_free_list.
type Table struct {
	slots    []*Task
	free     []int // index-based free list; order preserved like env_link chaining
	capacity int
}

// NewTable allocates a table with room for capacity tasks. capacity must be
// a power of two so slot indices can be extracted with a mask, the same
// constraint env_alloc's ENVGENSHIFT arithmetic assumes of NENV.
func NewTable(capacity int) *Table {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic(fmt.Sprintf("kernel: table capacity %d is not a positive power of two", capacity))
	}
	t := &Table{
		slots:    make([]*Task, capacity),
		free:     make([]int, capacity),
		capacity: capacity,
	}
	for i := range t.slots {
		t.slots[i] = &Task{Status: StatusFree}
		t.free[i] = i
	}
	return t
}

// Capacity returns the table's fixed slot count.
func (t *Table) Capacity() int { return t.capacity }

// Alloc reserves a free slot and returns its Task with a fresh ID and status
// NOT_RUNNABLE (no longer FREE, so Lookup resolves it, but not yet eligible
// to run), ready for the kernel's task-creation logic to fill in. Returns
// kernerr.ErrNoFreeEnv if every slot is in use.
func (t *Table) Alloc() (*Task, error) {
	if len(t.free) == 0 {
		return nil, kernerr.ErrNoFreeEnv
	}
	idx := t.free[0]
	t.free = t.free[1:]

	task := t.slots[idx]
	gen := nextGeneration(task.ID, t.capacity)
	task.ID = ID(gen) | ID(idx)
	task.Status = StatusNotRunnable
	return task, nil
}

// Release returns a task's slot to the free list. The slot's ID is left in
// place so the next Alloc from it computes its generation from this one,
// guaranteeing no two consecutive occupants of a slot share an ID.
func (t *Table) Release(task *Task) {
	idx := task.ID.slot(t.capacity)
	task.Status = StatusFree
	t.free = append(t.free, idx)
}

// Lookup resolves id to its task, rejecting stale IDs (a slot whose current
// occupant's ID doesn't match, including free slots) exactly as
// envid2env's index-then-verify does. An id of 0 always resolves to self.
func (t *Table) Lookup(id ID, self *Task) (*Task, error) {
	if id == 0 {
		return self, nil
	}
	task := t.slots[id.slot(t.capacity)]
	if task.Status == StatusFree || task.ID != id {
		return nil, kernerr.ErrBadEnv
	}
	return task, nil
}

// CheckPerm resolves id the way Lookup does, additionally requiring the
// caller be either the target itself or the target's immediate parent, the
// permission check envid2env performs when need_check_perm is set.
func (t *Table) CheckPerm(id ID, self *Task) (*Task, error) {
	task, err := t.Lookup(id, self)
	if err != nil {
		return nil, err
	}
	if task != self && task.ParentID != self.ID {
		return nil, kernerr.ErrBadEnv
	}
	return task, nil
}

// All returns every non-free task slot, used to publish the task-table
// occupancy gauge.
func (t *Table) All() []*Task {
	out := make([]*Task, 0, t.capacity)
	for _, task := range t.slots {
		if task.Status != StatusFree {
			out = append(out, task)
		}
	}
	return out
}

// slotOf returns a task's own index, used internally by the scheduler scan.
func (t *Table) slotOf(task *Task) int {
	return task.ID.slot(t.capacity)
}

// taskAt returns the task occupying slot idx regardless of its status.
func (t *Table) taskAt(idx int) *Task {
	return t.slots[idx]
}
