package esjit

import "sync/atomic"

// cachedPageSize holds the process-wide page size, written by
// InitPageSize and read by PageSize through sync/atomic stores and loads
// rather than a lock; callers are required to call InitPageSize before any
// other use. The starting value -1 marks a size not yet cached, so
// PageSize can tell an uninitialized cache apart from any real page size.
var cachedPageSize int64 = -1

// InitPageSize queries the OS for its page size and caches it for the
// remainder of the process. Safe to call more than once; concurrent first
// calls are the caller's responsibility to serialize, per §5.
func InitPageSize() error {
	sz, err := platformPageSize()
	if err != nil {
		return &PlatformError{Kind: Uninitialized, Cause: err}
	}
	atomic.StoreInt64(&cachedPageSize, int64(sz))
	return nil
}

// PageSize returns the cached page size. Before InitPageSize has run
// successfully, it returns Platform(Uninitialized) rather than a bogus 0.
func PageSize() (int, error) {
	sz := atomic.LoadInt64(&cachedPageSize)
	if sz < 0 {
		return 0, &PlatformError{Kind: Uninitialized}
	}
	return int(sz), nil
}

// pageAlign rounds size up to the next multiple of pageSize.
func pageAlign(size, pageSize int) int {
	if pageSize <= 0 {
		return size
	}
	rem := size % pageSize
	if rem == 0 {
		return size
	}
	return size + (pageSize - rem)
}

// pageProt is the W^X state of a Page.
type pageProt int

const (
	protRW pageProt = iota
	protRX
)

// Page is one OS-managed, page-aligned memory region. Exactly one of RW or
// RX protection holds at any time (§4.4's W⊕X invariant); addr and data
// are kept in sync by grow/make-exec/release so callers never observe a
// stale view.
type Page struct {
	addr  uintptr
	data  []byte // writable view, valid only while prot == protRW
	size  int    // total mapped size, always a page multiple
	prot  pageProt
}

// AllocRW reserves and commits size bytes (rounded up to a page multiple)
// with read+write protection, anonymous and not file-backed.
func AllocRW(size int) (*Page, error) {
	ps, err := PageSize()
	if err != nil {
		return nil, err
	}
	aligned := pageAlign(size, ps)
	if aligned == 0 {
		aligned = ps
	}
	addr, data, err := platformAllocRW(aligned)
	if err != nil {
		return nil, &PlatformError{Kind: OutOfMemory, Cause: err}
	}
	return &Page{addr: addr, data: data, size: aligned, prot: protRW}, nil
}

// GrowInPlace extends an RW page to at least newSize bytes (rounded up to
// a page multiple). The page's address may change; callers must re-read
// p.Addr() after a successful call (§4.4: POSIX mremap may move the
// mapping, Win32 always allocates new + copies + frees old).
func (p *Page) GrowInPlace(newSize int) error {
	if p.prot != protRW {
		panic("esjit: GrowInPlace on a non-writable page")
	}
	ps, err := PageSize()
	if err != nil {
		return err
	}
	aligned := pageAlign(newSize, ps)
	if aligned <= p.size {
		return nil
	}
	addr, data, err := platformGrow(p.addr, p.data, p.size, aligned)
	if err != nil {
		return &PlatformError{Kind: OutOfMemory, Cause: err}
	}
	p.addr = addr
	p.data = data
	p.size = aligned
	return nil
}

// MakeExec transitions the page from RW to RX. After success the region
// is no longer writable.
func (p *Page) MakeExec() error {
	if p.prot == protRX {
		return nil // idempotent at the Page level; NativeFunction enforces it too
	}
	if err := platformMakeExec(p.addr, p.size); err != nil {
		return &PlatformError{Kind: ProtectFailed, Cause: err}
	}
	p.prot = protRX
	p.data = nil
	return nil
}

// Release unmaps the page. The handle is consumed regardless of outcome;
// a failure is still reported to the caller.
func (p *Page) Release() error {
	err := platformRelease(p.addr, p.size)
	p.data = nil
	p.size = 0
	if err != nil {
		return &PlatformError{Kind: UnmapFailed, Cause: err}
	}
	return nil
}

// Addr is the page's current base address.
func (p *Page) Addr() uintptr { return p.addr }

// Size is the page's current total mapped size.
func (p *Page) Size() int { return p.size }

// Bytes is the writable view into the page. Valid only while RW.
func (p *Page) Bytes() []byte {
	if p.prot != protRW {
		panic("esjit: Bytes() on a non-writable page")
	}
	return p.data
}
