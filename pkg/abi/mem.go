package abi

// Memory region permission/allocation flags, carried through
// sys_alloc_region/sys_map_region/sys_map_physical_region unchanged from the
// source's PROT_*/ALLOC_* bits.
const (
	ProtRead  = 1 << 0
	ProtWrite = 1 << 1
	ProtExec  = 1 << 2
	ProtUser  = 1 << 3
	ProtLazy  = 1 << 4
	ProtShare = 1 << 5
	ProtCombine = 1 << 6

	ProtRWX = ProtRead | ProtWrite | ProtExec
	ProtAll = ProtRead | ProtWrite | ProtExec | ProtShare | ProtCombine

	AllocOne  = 1 << 7
	AllocZero = 1 << 8

	MapUserMMIO = 1 << 9
)

// MaxUserAddress is the boundary below which addresses are user-space and
// may be named in alloc/map/unmap/ipc syscalls.
const MaxUserAddress = 1 << 40

// PageSize is the simulated MMU's allocation granule.
const PageSize = 4096

// UserExceptionStackTop is the fixed top-of-stack address a task's
// page-fault/signal upcall runs on, matching USER_EXCEPTION_STACK_TOP.
const UserExceptionStackTop = uintptr(0xEEC00000)
