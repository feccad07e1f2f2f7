package arch

import "encoding/binary"

// RegsSize and UTrapframeSize are the wire sizes Marshal/Unmarshal produce,
// matching sizeof(struct PushRegs) (120) and sizeof(struct UTrapframe)
// (160) in the source this is ported from — the arithmetic
// signal_handler's 216-byte argument block comment depends on.
const (
	RegsSize       = 15 * 8
	UTrapframeSize = 8 + 8 + RegsSize + 8 + 8 + 8
)

func putU64(b []byte, off int, v uint64) { binary.LittleEndian.PutUint64(b[off:off+8], v) }
func getU64(b []byte, off int) uint64    { return binary.LittleEndian.Uint64(b[off : off+8]) }

// Marshal serializes Regs to its fixed RegsSize byte encoding.
func (r Regs) Marshal() []byte {
	b := make([]byte, RegsSize)
	vals := []uint64{r.R15, r.R14, r.R13, r.R12, r.R11, r.R10, r.R9, r.R8, r.RDI, r.RSI, r.RBP, r.RDX, r.RCX, r.RBX, r.RAX}
	for i, v := range vals {
		putU64(b, i*8, v)
	}
	return b
}

// UnmarshalRegs parses a RegsSize byte encoding back into a Regs value.
func UnmarshalRegs(b []byte) Regs {
	v := make([]uint64, 15)
	for i := range v {
		v[i] = getU64(b, i*8)
	}
	return Regs{
		R15: v[0], R14: v[1], R13: v[2], R12: v[3],
		R11: v[4], R10: v[5], R9: v[6], R8: v[7],
		RDI: v[8], RSI: v[9], RBP: v[10],
		RDX: v[11], RCX: v[12], RBX: v[13], RAX: v[14],
	}
}

// Marshal serializes a UTrapframe to its fixed UTrapframeSize byte
// encoding, the form copied into a task's exception stack.
func (u UTrapframe) Marshal() []byte {
	b := make([]byte, UTrapframeSize)
	putU64(b, 0, uint64(u.Err))
	putU64(b, 8, uint64(u.FaultVA))
	copy(b[16:16+RegsSize], u.Regs.Marshal())
	off := 16 + RegsSize
	putU64(b, off, u.RFlags)
	putU64(b, off+8, uint64(u.RIP))
	putU64(b, off+16, uint64(u.RSP))
	return b
}

// UnmarshalUTrapframe parses a UTrapframeSize byte encoding back into a
// UTrapframe value.
func UnmarshalUTrapframe(b []byte) UTrapframe {
	off := 16 + RegsSize
	return UTrapframe{
		Err:     uintptr(getU64(b, 0)),
		FaultVA: uintptr(getU64(b, 8)),
		Regs:    UnmarshalRegs(b[16 : 16+RegsSize]),
		RFlags:  getU64(b, off),
		RIP:     uintptr(getU64(b, off+8)),
		RSP:     uintptr(getU64(b, off+16)),
	}
}
