package esjit

import (
	"runtime/debug"
	"sync/atomic"
	"testing"
)

func TestPageAlign(t *testing.T) {
	cases := []struct{ size, pageSize, want int }{
		{0, 4096, 0},
		{1, 4096, 4096},
		{4096, 4096, 4096},
		{4097, 4096, 8192},
		{100, 0, 100}, // degenerate page size leaves size untouched
	}
	for _, c := range cases {
		if got := pageAlign(c.size, c.pageSize); got != c.want {
			t.Fatalf("pageAlign(%d, %d) = %d, want %d", c.size, c.pageSize, got, c.want)
		}
	}
}

func TestPageSizeUninitializedBeforeInit(t *testing.T) {
	saved := atomic.LoadInt64(&cachedPageSize)
	atomic.StoreInt64(&cachedPageSize, -1)
	defer atomic.StoreInt64(&cachedPageSize, saved)

	_, err := PageSize()
	pe, ok := err.(*PlatformError)
	if !ok || pe.Kind != Uninitialized {
		t.Fatalf("err = %v, want Platform(Uninitialized)", err)
	}
}

func TestInitPageSizeThenPageSize(t *testing.T) {
	saved := atomic.LoadInt64(&cachedPageSize)
	defer atomic.StoreInt64(&cachedPageSize, saved)

	if err := InitPageSize(); err != nil {
		t.Fatalf("InitPageSize: %v", err)
	}
	sz, err := PageSize()
	if err != nil {
		t.Fatalf("PageSize: %v", err)
	}
	if sz <= 0 || sz%4096 != 0 {
		t.Fatalf("PageSize() = %d, want a positive multiple of 4096", sz)
	}
}

// TestAllocMakeExecRelease exercises the real OS page allocator end to
// end: W^X transition, size rounding (Testable Property 4), and release.
func TestAllocMakeExecRelease(t *testing.T) {
	if err := InitPageSize(); err != nil {
		t.Fatalf("InitPageSize: %v", err)
	}
	ps, _ := PageSize()

	page, err := AllocRW(1)
	if err != nil {
		t.Fatalf("AllocRW: %v", err)
	}
	if page.Size()%ps != 0 || page.Size() < 1 {
		t.Fatalf("Size() = %d, want a positive multiple of %d", page.Size(), ps)
	}

	page.Bytes()[0] = 0xC3 // RW: writable

	if err := page.MakeExec(); err != nil {
		t.Fatalf("MakeExec: %v", err)
	}
	if err := page.MakeExec(); err != nil {
		t.Fatalf("MakeExec (idempotent second call): %v", err)
	}

	if err := page.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestGrowInPlacePreservesBytes(t *testing.T) {
	if err := InitPageSize(); err != nil {
		t.Fatalf("InitPageSize: %v", err)
	}
	ps, _ := PageSize()

	page, err := AllocRW(ps)
	if err != nil {
		t.Fatalf("AllocRW: %v", err)
	}
	defer page.Release()

	page.Bytes()[0] = 0xAB
	page.Bytes()[ps-1] = 0xCD

	if err := page.GrowInPlace(ps + 1); err != nil {
		t.Fatalf("GrowInPlace: %v", err)
	}
	if page.Size() < ps+1 {
		t.Fatalf("Size() = %d after grow, want >= %d", page.Size(), ps+1)
	}
	if page.Bytes()[0] != 0xAB || page.Bytes()[ps-1] != 0xCD {
		t.Fatalf("GrowInPlace did not preserve already-written bytes")
	}
}

// TestWriteFaultAfterMakeExec reproduces S5: once a page has transitioned
// to executable (read+execute, never write), a write into it faults. A
// bare SIGSEGV would kill the test binary outright; debug.SetPanicOnFault
// asks the runtime to turn exactly this kind of fault — an invalid access
// through an ordinary Go pointer, here one backed by mmap'd memory — into
// a recoverable panic for the current goroutine instead, which is what
// lets this scenario run in-process rather than under a signal handler in
// a separate harness.
func TestWriteFaultAfterMakeExec(t *testing.T) {
	if err := InitPageSize(); err != nil {
		t.Fatalf("InitPageSize: %v", err)
	}
	page, err := AllocRW(1)
	if err != nil {
		t.Fatalf("AllocRW: %v", err)
	}
	defer page.Release()

	if err := page.MakeExec(); err != nil {
		t.Fatalf("MakeExec: %v", err)
	}

	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)

	defer func() {
		if recover() == nil {
			t.Fatalf("write to an executable (non-writable) page did not fault")
		}
	}()

	raw := bytesAt(page.Addr(), page.Size())
	raw[0] = 0xFF
}
