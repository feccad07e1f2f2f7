package kernel

import (
	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/arch"
	"github.com/kallsyms/nanokern/pkg/kernerr"
)

// SigAction returns a copy of the currently installed action for signo.
func (t *Task) SigAction(signo int) arch.SigAction {
	return t.sig.actions[signo-1]
}

// SetSigAction installs a new action for signo and returns the one it
// replaced, matching sys_sigaction's act/oldact swap. SIGKILL, SIGSTOP and
// SIGCONT cannot be handled and flags outside SAAllFlags are rejected.
func (t *Task) SetSigAction(signo int, act arch.SigAction) (arch.SigAction, error) {
	old := t.sig.actions[signo-1]
	if signo == abi.SIGKILL || signo == abi.SIGSTOP || signo == abi.SIGCONT {
		return old, kernerr.ErrInval
	}
	if act.Flags&^uint32(abi.SAAllFlags) != 0 {
		return old, kernerr.ErrInval
	}
	t.sig.actions[signo-1] = act
	return old, nil
}

// SigMask returns the task's currently blocked-signal mask.
func (t *Task) SigMask() abi.SigSet { return t.sig.mask }

// catchableMask is every bit of a SigSet; callers strip uncatchable() (the
// three signals that can never be blocked, caught, or waited on) from it.
const catchableMask = ^(abi.SigSet(0))

func uncatchable() abi.SigSet {
	return abi.SignalMask(abi.SIGKILL) | abi.SignalMask(abi.SIGSTOP) | abi.SignalMask(abi.SIGCONT)
}

// SetSigMask applies a sigprocmask-style update (SigBlock/SigUnblock/
// SigSetMask), silently stripping SIGKILL/SIGSTOP/SIGCONT from set since
// those can never be blocked.
func (t *Task) SetSigMask(how int, set abi.SigSet) (abi.SigSet, error) {
	old := t.sig.mask
	allowed := catchableMask &^ uncatchable()
	set &= allowed

	switch how {
	case abi.SigBlock:
		t.sig.mask |= set
	case abi.SigUnblock:
		t.sig.mask &^= set
	case abi.SigSetMask:
		t.sig.mask = set
	default:
		return old, kernerr.ErrInval
	}
	return old, nil
}

// QueueLen returns the number of signals currently queued, used by
// internal/metrics to publish the signal-queue depth gauge.
func (t *Task) QueueLen() int {
	return (t.sig.queueEnd - t.sig.queueStart + SigQueueSize) % SigQueueSize
}

// enqueue appends qs to the circular queue. Returns kernerr.ErrAgain if the
// queue is full, matching sys_sigqueue's "try again later" behavior — the
// queue is full once it holds Q-1=15 unconsumed signals, an edge case the
// caller must retry, not a dropped signal.
func (t *Task) enqueue(qs arch.QueuedSignal) error {
	newEnd := (t.sig.queueEnd + 1) % SigQueueSize
	if newEnd == t.sig.queueStart {
		return kernerr.ErrAgain
	}
	t.sig.queue[t.sig.queueEnd] = qs
	t.sig.queueEnd = newEnd
	return nil
}

// CheckPendingDelivery scans the queue from its start for the first
// non-blocked signal, removes it from the queue (blocked entries ahead of it
// stay queued in their original order), and returns it for delivery.
// Reports ok=false if nothing deliverable is queued, exactly as
// env_check4pending_sigs does before env_run branches to signal_handler.
func (t *Task) CheckPendingDelivery() (arch.QueuedSignal, bool) {
	idx := t.sig.queueStart
	for idx != t.sig.queueEnd {
		qs := t.sig.queue[idx]
		if t.sig.mask&abi.SignalMask(int(qs.Info.Signo)) != 0 {
			idx = (idx + 1) % SigQueueSize
			continue
		}
		// Slide the skipped entries up one slot over the delivered one,
		// then advance the start past the slot that frees up.
		for cur := idx; cur != t.sig.queueStart; {
			prev := (cur - 1 + SigQueueSize) % SigQueueSize
			t.sig.queue[cur] = t.sig.queue[prev]
			cur = prev
		}
		t.sig.queueStart = (t.sig.queueStart + 1) % SigQueueSize
		return qs, true
	}
	return arch.QueuedSignal{}, false
}

// ApplyDeliveryMask updates the blocked mask the way signal_handler does
// right before branching into the upcall: OR in the handler's own sa_mask,
// then OR in the delivered signal's own bit unless SA_NODEFER was set.
func (t *Task) ApplyDeliveryMask(qs arch.QueuedSignal) {
	t.sig.mask |= qs.Action.Mask
	if qs.Action.Flags&abi.SANoDefer == 0 {
		t.sig.mask |= abi.SignalMask(int(qs.Info.Signo))
	}
}

// Awaiting reports the mask sigwait is currently blocked on, or 0 if the
// task isn't in a sigwait.
func (t *Task) Awaiting() abi.SigSet { return t.sig.awaiting }

// BeginSigwait records that the task wants to be woken by one of the
// signals in set (validated to exclude SIGKILL/SIGSTOP/SIGCONT and to be
// non-empty, as sys_sigwait requires) and, if caughtVA is non-zero, where
// the caught signal number should be written.
func (t *Task) BeginSigwait(set abi.SigSet, caughtVA uintptr) error {
	allowed := catchableMask &^ uncatchable()
	if set&^allowed != 0 || set&allowed == 0 {
		return kernerr.ErrInval
	}
	t.sig.awaiting = set
	t.sig.caughtVA = caughtVA
	return nil
}

// CaughtVA returns the pointer sigwait asked the caught signal number be
// written to, or 0 if none was given.
func (t *Task) CaughtVA() uintptr { return t.sig.caughtVA }

// ConsumeAwaited scans the full queue (ignoring blocked status, since a
// task in sigwait must be woken even by signals it has blocked) for one
// matching the awaiting mask. If found, it clears the awaiting state and
// removes the matching entry from the circular queue while preserving the
// FIFO order of everything after it — a generic dequeue-from-middle rather
// than the two-branch wraparound-special-cased removal the source's
// check4pending_sigwait performs (see DESIGN.md Open Question 3). Returns
// ok=false if the task isn't awaiting anything or nothing matches yet.
func (t *Task) ConsumeAwaited() (arch.QueuedSignal, bool) {
	if t.sig.awaiting == 0 {
		return arch.QueuedSignal{}, false
	}

	idx := t.sig.queueStart
	for idx != t.sig.queueEnd {
		if t.sig.awaiting&abi.SignalMask(int(t.sig.queue[idx].Info.Signo)) != 0 {
			break
		}
		idx = (idx + 1) % SigQueueSize
	}
	if idx == t.sig.queueEnd {
		return arch.QueuedSignal{}, false
	}

	qs := t.sig.queue[idx]
	t.sig.awaiting = 0

	// Shift every entry after idx left by one slot (mod capacity) to close
	// the gap, then move the logical end back by one.
	for cur := idx; cur != (t.sig.queueEnd-1+SigQueueSize)%SigQueueSize; {
		next := (cur + 1) % SigQueueSize
		t.sig.queue[cur] = t.sig.queue[next]
		cur = next
	}
	t.sig.queueEnd = (t.sig.queueEnd - 1 + SigQueueSize) % SigQueueSize

	return qs, true
}

// Stopped reports whether the task is held by SIGSTOP (and not yet
// resumed by SIGCONT).
func (t *Task) Stopped() bool { return t.sig.stopped }

// SetStopped sets or clears the SIGSTOP hold.
func (t *Task) SetStopped(v bool) { t.sig.stopped = v }
