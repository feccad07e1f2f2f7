package syscall

import (
	"github.com/kallsyms/nanokern/pkg/arch"
	"github.com/kallsyms/nanokern/pkg/kernel"
	"github.com/kallsyms/nanokern/pkg/vsyscall"
)

// sysGettime returns wall-clock seconds since the Unix epoch (spec.md §4.5),
// read through the vsyscall page rather than trapping into the kernel on
// the real platform this mirrors — here it is a plain handler, but it
// shares the clock source with vsyscall.Now() so both ends of the analogy
// agree.
func sysGettime(t *kernel.Task, k *kernel.Kernel, args arch.SyscallArguments) (uintptr, error) {
	return uintptr(vsyscall.Now().Unix()), nil
}
