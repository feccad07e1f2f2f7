package kernel

import (
	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/arch"
	"github.com/kallsyms/nanokern/pkg/kernerr"
)

// SigQueue posts signal sig with the given value to the task id, from
// self's perspective (self is whoever issued the sigqueue syscall — used
// for both permission-free lookup and as the si_pid the delivered signal
// carries). Mirrors sys_sigqueue's special-casing of SIGKILL/SIGSTOP/
// SIGCONT before falling through to the generic enqueue-or-DFL/IGN path.
func (k *Kernel) SigQueue(self *Task, id ID, sig int, value uint64) error {
	if sig < abi.SIGINT || sig > abi.NSignals {
		return kernerr.ErrInval
	}

	k.mu.Lock()
	target, err := k.Table.Lookup(id, self)
	k.mu.Unlock()
	if err != nil {
		return kernerr.ErrBadEnv
	}

	switch sig {
	case abi.SIGKILL:
		k.Destroy(self, target)
		if k.Log != nil {
			k.Log.Debugf("signals: sent SIGKILL from [%08x] to [%08x]", self.ID, id)
		}
		return nil

	case abi.SIGSTOP:
		target.SetStopped(true)
		return k.notifyParentStop(self, target)

	case abi.SIGCONT:
		if target.Stopped() {
			target.SetStopped(false)
			return k.notifyParentStop(self, target)
		}
	}

	sa := target.SigAction(sig)

	if target.PgFaultUpcall == 0 {
		switch sa.Handler {
		case abi.SigDfl:
			k.Destroy(self, target)
			return nil
		case abi.SigIgn:
			return nil
		}
	}

	qs := arch.QueuedSignal{
		Action: sa,
		Info: arch.SigInfo{
			Signo: int32(sig),
			PID:   int32(self.ID),
			Value: value,
		},
	}
	if err := target.enqueue(qs); err != nil {
		return err
	}

	if sa.Flags&abi.SAResetHand != 0 {
		reset := sa
		if sig == abi.SIGCHLD || sig == abi.SIGUSR1 || sig == abi.SIGUSR2 || sig == abi.SIGCONT {
			reset.Handler = abi.SigIgn
		} else {
			reset.Handler = abi.SigDfl
		}
		reset.Flags &^= abi.SASigInfo
		target.sig.actions[sig-1] = reset
	}

	if k.Log != nil {
		k.Log.Debugf("signals: sent signal %d from [%08x] to [%08x]", sig, self.ID, id)
	}
	if k.Metrics != nil {
		k.Metrics.SignalQueueDepth.Set(float64(target.QueueLen()))
	}
	return nil
}

// notifyParentStop posts SIGCHLD to target's parent on a SIGSTOP/SIGCONT
// transition, unless the parent's SIGCHLD action has SA_NOCLDSTOP set.
func (k *Kernel) notifyParentStop(self *Task, target *Task) error {
	if target.ParentID == 0 {
		return nil
	}
	k.mu.Lock()
	parent, err := k.Table.Lookup(target.ParentID, self)
	k.mu.Unlock()
	if err != nil {
		return kernerr.ErrBadEnv
	}
	if parent.SigAction(abi.SIGCHLD).Flags&abi.SANoCldStop != 0 {
		return nil
	}
	return k.SigQueue(self, target.ParentID, abi.SIGCHLD, 0)
}
