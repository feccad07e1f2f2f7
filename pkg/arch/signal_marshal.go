package arch

import (
	"encoding/binary"

	"github.com/kallsyms/nanokern/pkg/abi"
)

func sigHandlerFromU64(v uint64) abi.SigHandler { return abi.SigHandler(v) }
func sigSetFromU32(v uint32) abi.SigSet         { return abi.SigSet(v) }

// Fixed wire sizes for the signal-delivery types, matching the source's
// sizeof(struct sigaction)=16, sizeof(siginfo_t)=32, sizeof(struct
// QueuedSignal)=48 and the 216-byte argument block signal_handler builds
// from them (48 + 4 + 4 pad + 160).
const (
	SigActionSize   = 16
	SigInfoSize     = 32
	QueuedSigSize   = SigActionSize + SigInfoSize
)

func putU32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:off+4], v) }
func getU32(b []byte, off int) uint32    { return binary.LittleEndian.Uint32(b[off : off+4]) }

// Marshal serializes a SigAction to its fixed 16-byte encoding.
func (a SigAction) Marshal() []byte {
	b := make([]byte, SigActionSize)
	putU64(b, 0, uint64(a.Handler))
	putU32(b, 8, uint32(a.Mask))
	putU32(b, 12, a.Flags)
	return b
}

// UnmarshalSigAction parses a 16-byte encoding back into a SigAction.
func UnmarshalSigAction(b []byte) SigAction {
	return SigAction{
		Handler: sigHandlerFromU64(getU64(b, 0)),
		Mask:    sigSetFromU32(getU32(b, 8)),
		Flags:   getU32(b, 12),
	}
}

// Marshal serializes a SigInfo to its fixed 32-byte encoding.
func (i SigInfo) Marshal() []byte {
	b := make([]byte, SigInfoSize)
	putU32(b, 0, uint32(i.Signo))
	putU32(b, 4, uint32(i.Code))
	putU32(b, 8, uint32(i.PID))
	putU64(b, 16, uint64(i.Addr))
	putU64(b, 24, i.Value)
	return b
}

// UnmarshalSigInfo parses a 32-byte encoding back into a SigInfo.
func UnmarshalSigInfo(b []byte) SigInfo {
	return SigInfo{
		Signo: int32(getU32(b, 0)),
		Code:  int32(getU32(b, 4)),
		PID:   int32(getU32(b, 8)),
		Addr:  uintptr(getU64(b, 16)),
		Value: getU64(b, 24),
	}
}

// Marshal serializes a QueuedSignal to its fixed 48-byte encoding.
func (q QueuedSignal) Marshal() []byte {
	b := make([]byte, QueuedSigSize)
	copy(b[0:SigActionSize], q.Action.Marshal())
	copy(b[SigActionSize:], q.Info.Marshal())
	return b
}

// UnmarshalQueuedSignal parses a 48-byte encoding back into a QueuedSignal.
func UnmarshalQueuedSignal(b []byte) QueuedSignal {
	return QueuedSignal{
		Action: UnmarshalSigAction(b[0:SigActionSize]),
		Info:   UnmarshalSigInfo(b[SigActionSize:]),
	}
}

// Marshal serializes a SignalArgBlock to its fixed 216-byte encoding, the
// exact layout pushed onto a task's stack before branching to its upcall.
func (s SignalArgBlock) Marshal() []byte {
	b := make([]byte, SignalArgBlockSize)
	copy(b[0:QueuedSigSize], s.Signal.Marshal())
	putU32(b, QueuedSigSize, s.Mask)
	off := QueuedSigSize + 8
	copy(b[off:], s.Resume.Marshal())
	return b
}
