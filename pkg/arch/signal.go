package arch

import "github.com/kallsyms/nanokern/pkg/abi"

// UTrapframe is the fault/signal record pushed to a task's user exception
// stack before branching to its upcall, named after struct UTrapframe in
// the trap handling this is ported from.
type UTrapframe struct {
	Err      uintptr
	FaultVA  uintptr
	Regs     Regs
	RFlags   uint64
	RIP      uintptr
	RSP      uintptr
}

// SigInfo carries the delivered signal's metadata, mirroring siginfo_t.
type SigInfo struct {
	Signo   int32
	Code    int32
	PID     int32
	_       uint32 // padding, matches the source's explicit pad field
	Addr    uintptr
	Value   uint64
}

// SigAction is one entry of a task's signal action table.
type SigAction struct {
	Handler abi.SigHandler
	Mask    abi.SigSet
	Flags   uint32
}

// QueuedSignal is one entry in a task's pending-signal circular queue: the
// action in effect at post time plus the signal's metadata, exactly as
// struct QueuedSignal bundles sa+info so a later handler snapshot can't be
// changed out from under a still-queued signal.
type QueuedSignal struct {
	Action SigAction
	Info   SigInfo
}

// SignalArgBlock is the argument block signal_handler pushes onto a task's
// stack before branching to its upcall: the delivered QueuedSignal, the
// mask that was in effect before delivery, and a UTrapframe to resume the
// interrupted context. Field order and a 4-byte pad after the mask
// reproduce the original's exact 216-byte, 16-byte-aligned layout (the
// arithmetic spec.md documents: 48 + 4 + 4(pad) + 160 = 216).
type SignalArgBlock struct {
	Signal   QueuedSignal
	Mask     uint32
	_        uint32
	Resume   UTrapframe
}

// SignalArgBlockSize is the fixed size of the block signal delivery writes
// to the user exception stack.
const SignalArgBlockSize = 216

// AlignSignalStack rounds rsp down to a 16-byte boundary, replicating the
// System V ABI alignment fix-up signal_handler performs before laying out
// its argument block.
func AlignSignalStack(rsp uintptr) uintptr {
	if rsp&0xf != 0 {
		rsp -= rsp & 0xf
	}
	return rsp
}
