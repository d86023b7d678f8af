package esjit

import "testing"

func TestRegisterFileAllocLowestSkipsScratch(t *testing.T) {
	var r registerFile
	for i := 0; i < 15; i++ { // every allocatable register: 16 minus the scratch one
		got := r.allocLowest()
		if got == scratchReg {
			t.Fatalf("allocLowest returned the reserved scratch register %d", scratchReg)
		}
	}
}

func TestRegisterFileFreeAndReuse(t *testing.T) {
	var r registerFile
	a := r.allocLowest()
	b := r.allocLowest()
	if a == b {
		t.Fatalf("allocLowest returned the same register twice: %d", a)
	}
	r.free(a)
	if r.isLive(a) {
		t.Fatalf("register %d still live after free", a)
	}
	c := r.allocLowest()
	if c != a {
		t.Fatalf("allocLowest = %d, want reuse of freed lowest register %d", c, a)
	}
}

func TestRegisterFileLiveIndicesOrdered(t *testing.T) {
	var r registerFile
	r.allocLowest()
	r.allocLowest()
	r.allocLowest()
	live := r.liveIndices()
	for i := 1; i < len(live); i++ {
		if live[i] <= live[i-1] {
			t.Fatalf("liveIndices not ascending: %v", live)
		}
	}
}
