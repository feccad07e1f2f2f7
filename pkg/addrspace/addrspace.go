// Package addrspace simulates the per-task address space: the external
// collaborator spec.md treats as opaque (only Map/Unmap/CheckPerm/CopyIn/
// CopyOut/ForceAlloc are touched). Real host-level mmap/mprotect and
// SIGSEGV trapping would require cgo or assembly, which the boot/GDT/IDT
// abstraction in spec.md places out of scope; a map-based simulation keeps
// the same external contract (regions have permissions, pages are
// lazily/eagerly backed, cross-space copies are explicit) without it.
package addrspace

import (
	"sync"

	"github.com/kallsyms/nanokern/pkg/abi"
	"github.com/kallsyms/nanokern/pkg/kernerr"
)

// page is one simulated physical page: a shared, reference-counted backing
// store so Map can alias the same storage across address spaces, the way
// map_region aliasing a source page does for IPC/fork.
type page struct {
	data [abi.PageSize]byte
	refs int
}

// region describes one mapped virtual page.
type region struct {
	page *page
	perm int
	lazy bool
}

// Space is one task's simulated address space: a sparse map from
// page-aligned virtual address to region.
type Space struct {
	mu     sync.Mutex
	pages  map[uintptr]*region
}

// New returns an empty address space.
func New() *Space {
	return &Space{pages: make(map[uintptr]*region)}
}

func pageAlign(addr uintptr) uintptr {
	return addr &^ (abi.PageSize - 1)
}

func aligned(addr uintptr) bool {
	return addr&(abi.PageSize-1) == 0
}

// Map installs size bytes (rounded up to whole pages) at dst, perm. If src
// is non-nil, the pages are shared with src's mapping at srcAddr (refcount
// bumped) the way map_region aliases a source page rather than copying it;
// otherwise fresh zeroed pages are allocated, honoring abi.ProtLazy by
// deferring the backing allocation until first touch.
func (s *Space) Map(dst uintptr, src *Space, srcAddr uintptr, size uintptr, perm int) error {
	if !aligned(dst) {
		return kernerr.ErrInval
	}
	if dst >= abi.MaxUserAddress {
		return kernerr.ErrInval
	}

	npages := (size + abi.PageSize - 1) / abi.PageSize

	s.mu.Lock()
	defer s.mu.Unlock()
	if src != nil {
		src.mu.Lock()
		defer src.mu.Unlock()
	}

	for i := uintptr(0); i < npages; i++ {
		va := dst + i*abi.PageSize
		var pg *page
		if src != nil {
			sr, ok := src.pages[pageAlign(srcAddr)+i*abi.PageSize]
			if !ok {
				return kernerr.ErrInval
			}
			if perm&abi.ProtWrite != 0 && sr.perm&abi.ProtWrite == 0 {
				return kernerr.ErrInval
			}
			pg = sr.page
			pg.refs++
		} else if perm&abi.ProtLazy == 0 {
			pg = &page{refs: 1}
		}
		s.pages[va] = &region{page: pg, perm: perm, lazy: pg == nil}
	}
	return nil
}

// Unmap removes size bytes (rounded up) starting at va. Unmapping an
// address with nothing mapped silently succeeds, matching unmap_region.
func (s *Space) Unmap(va uintptr, size uintptr) {
	npages := (size + abi.PageSize - 1) / abi.PageSize
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := uintptr(0); i < npages; i++ {
		addr := pageAlign(va) + i*abi.PageSize
		if r, ok := s.pages[addr]; ok && r.page != nil {
			r.page.refs--
		}
		delete(s.pages, addr)
	}
}

// ForceAlloc backs every page in [va, va+size) with real storage,
// allocating lazily-mapped pages on the spot. This is the Go analog of
// force_alloc_page, used to guarantee the exception stack is backed before
// a page-fault upcall writes to it.
func (s *Space) ForceAlloc(va uintptr, size uintptr) error {
	npages := (size + abi.PageSize - 1) / abi.PageSize
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := uintptr(0); i < npages; i++ {
		addr := pageAlign(va) + i*abi.PageSize
		r, ok := s.pages[addr]
		if !ok {
			return kernerr.ErrNoMem
		}
		if r.page == nil {
			r.page = &page{refs: 1}
			r.lazy = false
		}
	}
	return nil
}

// CheckPerm reports whether [va, va+size) is entirely mapped with at least
// the given permission bits set, the read/write boundary check every
// syscall that touches user memory performs before acting on it.
func (s *Space) CheckPerm(va uintptr, size uintptr, perm int) bool {
	npages := uintptr(0)
	if size > 0 {
		npages = (pageAlign(va+size-1)-pageAlign(va))/abi.PageSize + 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := uintptr(0); i < npages; i++ {
		r, ok := s.pages[pageAlign(va)+i*abi.PageSize]
		if !ok || r.perm&perm != perm {
			return false
		}
	}
	return true
}

// CopyOut copies data into the address space at va, force-allocating the
// destination pages first (the same "clear WP, memcpy, restore WP" shape
// the kernel uses to write into a task's user memory).
func (s *Space) CopyOut(va uintptr, data []byte) error {
	if err := s.ForceAlloc(pageAlign(va), uintptr(len(data))+(va-pageAlign(va))); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked(va, data, true)
}

// CopyIn copies data out of the address space at va into dst.
func (s *Space) CopyIn(va uintptr, dst []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked(va, dst, false)
}

func (s *Space) copyLocked(va uintptr, buf []byte, out bool) error {
	remaining := buf
	addr := va
	for len(remaining) > 0 {
		r, ok := s.pages[pageAlign(addr)]
		if !ok || r.page == nil {
			return kernerr.ErrInval
		}
		off := addr - pageAlign(addr)
		n := abi.PageSize - int(off)
		if n > len(remaining) {
			n = len(remaining)
		}
		if out {
			copy(r.page.data[off:], remaining[:n])
		} else {
			copy(remaining[:n], r.page.data[off:])
		}
		remaining = remaining[n:]
		addr += uintptr(n)
	}
	return nil
}

// MaxRefs returns the highest refcount among the pages backing
// [va, va+size), the simulation's analog of region_maxref, used by
// sys_region_refs.
func (s *Space) MaxRefs(va uintptr, size uintptr) int {
	npages := (size + abi.PageSize - 1) / abi.PageSize
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for i := uintptr(0); i < npages; i++ {
		r, ok := s.pages[pageAlign(va)+i*abi.PageSize]
		if !ok || r.page == nil {
			continue
		}
		if r.page.refs > max {
			max = r.page.refs
		}
	}
	return max
}

// Destroy releases every page this space holds a reference to. Called once
// on task teardown.
func (s *Space) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, r := range s.pages {
		if r.page != nil {
			r.page.refs--
		}
		delete(s.pages, addr)
	}
}
