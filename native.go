package esjit

import "fmt"

type nativeState int

const (
	stateBuilt nativeState = iota
	stateExecutable
	stateReleased
)

// NativeFunction owns one executable memory page and the metadata needed
// to invoke it. It progresses through Built(RW) -> Executable(RX) ->
// Released (§4.7) and never moves backward; it is the exclusive owner of
// its page for as long as it lives.
type NativeFunction struct {
	page     *Page
	codeSize int
	name     string
	args     []TypeFlags
	ret      TypeFlags
	state    nativeState
}

// NewNativeFunction transpiles def's bytecode into a fresh RW page and
// returns the resulting NativeFunction in the Built state. On any
// transpile error the partially-written page is released before the
// error is returned (§4.6 step 3).
func NewNativeFunction(def *FunctionDef, name string) (*NativeFunction, error) {
	ps, err := PageSize()
	if err != nil {
		return nil, err
	}
	page, err := AllocRW(ps)
	if err != nil {
		return nil, err
	}

	rf := NewRawFunction(def)
	region, err := Transpile(rf, page)
	if err != nil {
		page.Release()
		return nil, err
	}

	args := make([]TypeFlags, len(def.Args))
	copy(args, def.Args)

	return &NativeFunction{
		page:     page,
		codeSize: region.Size,
		name:     name,
		args:     args,
		ret:      def.ReturnType,
		state:    stateBuilt,
	}, nil
}

// MakeExecutable transitions the page from RW to RX. Idempotent: calling
// it again once already Executable is a no-op. Calling it after Released
// is a contract violation.
func (n *NativeFunction) MakeExecutable() error {
	switch n.state {
	case stateExecutable:
		return nil
	case stateReleased:
		panic("esjit: MakeExecutable called on a released NativeFunction")
	}
	if err := n.page.MakeExec(); err != nil {
		return err
	}
	n.state = stateExecutable
	return nil
}

// Code returns a read-only view of the emitted machine bytes. Only
// meaningful after MakeExecutable, but safe to call beforehand.
func (n *NativeFunction) Code() []byte {
	if n.state == stateReleased {
		panic("esjit: Code called on a released NativeFunction")
	}
	if n.state == stateExecutable {
		return bytesAt(n.page.Addr(), n.codeSize)
	}
	return n.page.Bytes()[:n.codeSize]
}

func (n *NativeFunction) Name() string       { return n.name }
func (n *NativeFunction) Args() []TypeFlags  { return n.args }
func (n *NativeFunction) Ret() TypeFlags     { return n.ret }

func (n *NativeFunction) requireExecutable(op string) {
	if n.state != stateExecutable {
		panic(fmt.Sprintf("esjit: %s called before MakeExecutable", op))
	}
}

// Call invokes the function for side effect, discarding any return value.
// Panics if the page is not yet executable (contract violation, §4.6).
func (n *NativeFunction) Call(args ...uint64) {
	n.requireExecutable("Call")
	invoke(n.page.Addr(), args)
}

// CallRet invokes the function and returns its RAX result.
func (n *NativeFunction) CallRet(args ...uint64) uint64 {
	n.requireExecutable("CallRet")
	return invoke(n.page.Addr(), args)
}

// Jmp transfers control to the function's entry point. Go has no literal
// tail-jump primitive, so this is CallRet in disguise; it exists as a
// distinct entry point for call()/call_ret()/jmp() call sites, to mark
// sites that intend a tail transfer rather than a call expecting to
// resume.
func (n *NativeFunction) Jmp(args ...uint64) uint64 {
	n.requireExecutable("Jmp")
	return invoke(n.page.Addr(), args)
}

func invoke(addr uintptr, args []uint64) uint64 {
	if len(args) > 6 {
		panic("esjit: at most 6 integer arguments are supported (no stack-passed argument spill)")
	}
	var argv *uint64
	if len(args) > 0 {
		argv = &args[0]
	}
	return callSysV(addr, argv, len(args))
}

// Release unmaps the page and frees owned metadata. Idempotent: releasing
// an already-released function is a no-op, matching the "destructor runs
// on every path" discipline of §7 without requiring callers to track
// whether they already released.
func (n *NativeFunction) Release() error {
	if n.state == stateReleased {
		return nil
	}
	n.state = stateReleased
	n.name = ""
	n.args = nil
	return n.page.Release()
}
