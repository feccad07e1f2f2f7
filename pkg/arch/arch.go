// Package arch holds the architecture-facing value types: syscall argument
// accessors, the saved register frame, and the page-fault/signal upcall
// frame layouts. These are adapted from gVisor's pkg/sentry/arch package,
// which defines the same SyscallArgument/SyscallArguments shape for a
// software kernel that never actually context-switches real hardware
// state.
package arch

// SyscallArgument is one raw syscall argument, exposed through typed
// accessors the same way arch.SyscallArgument does in the teacher package.
type SyscallArgument struct {
	Value uintptr
}

func (a SyscallArgument) Pointer() uintptr { return a.Value }
func (a SyscallArgument) Int() int32       { return int32(a.Value) }
func (a SyscallArgument) Uint() uint32     { return uint32(a.Value) }
func (a SyscallArgument) Int64() int64     { return int64(a.Value) }
func (a SyscallArgument) Uint64() uint64   { return uint64(a.Value) }
func (a SyscallArgument) SizeT() uintptr   { return a.Value }

// SyscallArguments is the fixed six-register argument vector the trap
// dispatcher extracts from a TrapFrame before calling into the syscall
// table, mirroring the rdx/rcx/rbx/rdi/rsi/r8 ordering spec.md's ABI names.
type SyscallArguments [6]SyscallArgument

// Regs is the general-purpose register snapshot saved/restored on every
// trap, named after PushRegs in the trap frame this is ported from.
type Regs struct {
	R15, R14, R13, R12 uint64
	R11, R10, R9, R8   uint64
	RDI, RSI           uint64
	RBP                uint64
	RDX, RCX, RBX, RAX uint64
}

// TrapFrame is the full saved-context record a trap delivers: general
// registers plus the trap number/error code/rip/rflags/rsp the dispatcher
// needs to resume or redirect execution.
type TrapFrame struct {
	Regs    Regs
	TrapNo  uintptr
	ErrCode uintptr
	RIP     uintptr
	RFlags  uint64
	RSP     uintptr
}

// Args extracts the six-argument syscall vector from a trap frame using
// spec.md's register convention: syscall number in RAX, args in
// RDX/RCX/RBX/RDI/RSI/R8.
func (tf *TrapFrame) Args() SyscallArguments {
	return SyscallArguments{
		{uintptr(tf.Regs.RDX)},
		{uintptr(tf.Regs.RCX)},
		{uintptr(tf.Regs.RBX)},
		{uintptr(tf.Regs.RDI)},
		{uintptr(tf.Regs.RSI)},
		{uintptr(tf.Regs.R8)},
	}
}

// SyscallNo returns the syscall number carried in RAX.
func (tf *TrapFrame) SyscallNo() uintptr { return uintptr(tf.Regs.RAX) }

// SetReturn stores a syscall's return value back into RAX.
func (tf *TrapFrame) SetReturn(v uintptr) { tf.Regs.RAX = uint64(v) }
