package abi

// Syscall numbers, in the order the syscall() dispatcher switches on them.
const (
	SysCputs = iota
	SysCgetc
	SysGetenvid
	SysEnvDestroy
	SysAllocRegion
	SysMapRegion
	SysMapPhysicalRegion
	SysUnmapRegion
	SysRegionRefs
	SysExofork
	SysEnvSetStatus
	SysEnvSetTrapframe
	SysEnvSetPgfaultUpcall
	SysYield
	SysIPCTrySend
	SysIPCRecv
	SysGettime
	SysSigqueue
	SysSigwait
	SysSigaction
	SysSigprocmask

	NumSyscalls
)

// Trap vector used to enter the syscall dispatcher, per spec.md's ABI.
const SyscallTrapVector = 0x30
