package syscall

import (
	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/arch"
	"github.com/kallsyms/nanokern/pkg/kernel"
	"github.com/kallsyms/nanokern/pkg/kernerr"
)

func pageAligned(addr uintptr) bool { return addr&(abi.PageSize-1) == 0 }

// sysAllocRegion allocates size bytes of zeroed memory at addr in envid's
// address space. ALLOC_ONE/ALLOC_ZERO are normalized so exactly one of the
// two is set before mapping, matching sys_alloc_region.
func sysAllocRegion(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	target, err := k.Table.CheckPerm(kernel.ID(args[0].Int()), t)
	if err != nil {
		return 0, kernerr.ErrBadEnv
	}
	addr, size, perm := args[1].Pointer(), args[2].SizeT(), int(args[3].Int())

	if addr >= abi.MaxUserAddress || !pageAligned(addr) {
		return 0, kernerr.ErrInval
	}
	if perm&abi.ProtAll == 0 {
		return 0, kernerr.ErrInval
	}
	if perm&abi.AllocOne != 0 {
		perm &^= abi.AllocZero
	} else {
		perm |= abi.AllocZero
		perm &^= abi.AllocOne
	}

	if err := target.Addr.Map(addr, nil, 0, size, perm|abi.ProtUser|abi.ProtLazy); err != nil {
		return 0, kernerr.ErrNoMem
	}
	return 0, nil
}

// sysMapRegion maps the region at srcva in srcenvid's space at dstva in
// dstenvid's space, sharing the backing pages rather than copying them.
func sysMapRegion(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	src, err := k.Table.CheckPerm(kernel.ID(args[0].Int()), t)
	if err != nil {
		return 0, kernerr.ErrBadEnv
	}
	srcva := args[1].Pointer()
	dst, err := k.Table.CheckPerm(kernel.ID(args[2].Int()), t)
	if err != nil {
		return 0, kernerr.ErrBadEnv
	}
	dstva, size, perm := args[3].Pointer(), args[4].SizeT(), int(args[5].Int())

	if srcva >= abi.MaxUserAddress || !pageAligned(srcva) {
		return 0, kernerr.ErrInval
	}
	if dstva >= abi.MaxUserAddress || !pageAligned(dstva) {
		return 0, kernerr.ErrInval
	}
	if perm&^abi.ProtAll != 0 || perm&abi.AllocZero != 0 || perm&abi.AllocOne != 0 {
		return 0, kernerr.ErrInval
	}

	if err := dst.Addr.Map(dstva, src.Addr, srcva, size, perm|abi.ProtUser); err != nil {
		return 0, kernerr.ErrNoMem
	}
	return 0, nil
}

// sysUnmapRegion unmaps the region at va in envid's address space.
// Unmapping a never-mapped address silently succeeds.
func sysUnmapRegion(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	target, err := k.Table.CheckPerm(kernel.ID(args[0].Int()), t)
	if err != nil {
		return 0, kernerr.ErrBadEnv
	}
	va, size := args[1].Pointer(), args[2].SizeT()
	if va >= abi.MaxUserAddress || !pageAligned(va) {
		return 0, kernerr.ErrInval
	}
	target.Addr.Unmap(va, size)
	return 0, nil
}

// sysMapPhysicalRegion maps a region of "physical" memory into a task's
// address space; restricted to FS_SERVER callers the way ENV_TYPE_FS gates
// sys_map_physical_region (spec.md §4.5: "caller must be FS_SERVER type").
func sysMapPhysicalRegion(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	if t.Type != kernel.TypeFSServer {
		return 0, kernerr.ErrBadEnv
	}
	pa, envid, va, size, perm := args[0].Pointer(), kernel.ID(args[1].Int()), args[2].Pointer(), args[3].SizeT(), int(args[4].Int())
	target, err := k.Table.CheckPerm(envid, t)
	if err != nil {
		return 0, kernerr.ErrBadEnv
	}
	if va+size >= abi.MaxUserAddress || !pageAligned(va) || !pageAligned(pa) || !pageAligned(size) {
		return 0, kernerr.ErrInval
	}
	if perm&^abi.ProtAll != 0 {
		return 0, kernerr.ErrInval
	}
	if err := target.Addr.Map(va, nil, 0, size, perm|abi.ProtUser|abi.MapUserMMIO); err != nil {
		return 0, kernerr.ErrNoMem
	}
	return 0, nil
}

// sysRegionRefs returns the maximum refcount among pages backing
// [addr, addr+size), or that value minus the maximum refcount of
// [addr2, addr2+size2) when addr2 names a real user address.
func sysRegionRefs(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	addr, size, addr2, size2 := args[0].Pointer(), args[1].SizeT(), args[2].Pointer(), args[3].SizeT()
	first := t.Addr.MaxRefs(addr, size)
	if addr2 >= abi.MaxUserAddress {
		return uintptr(first), nil
	}
	return uintptr(first - t.Addr.MaxRefs(addr2, size2)), nil
}
