package esjit

// RawFunction is a cursor over one FunctionDef's bytecode region: it
// borrows from the owning Image's buffer and is consumed by the
// transpiler. Its lifetime ends once transpilation completes.
type RawFunction struct {
	code []byte
	head int
}

// NewRawFunction wraps a FunctionDef's bytecode for transpilation.
func NewRawFunction(def *FunctionDef) *RawFunction {
	return &RawFunction{code: def.Code}
}

func (f *RawFunction) done() bool {
	return f.head >= len(f.code)
}

// next returns the opcode at the head and advances by one byte.
func (f *RawFunction) next() (byte, int, bool) {
	if f.done() {
		return 0, f.head, false
	}
	off := f.head
	op := f.code[off]
	f.head++
	return op, off, true
}

// readI32 reads a 4-byte big-endian signed operand at the head and
// advances past it.
func (f *RawFunction) readI32() (int32, error) {
	if f.head+4 > len(f.code) {
		return 0, errTruncated(f.head)
	}
	v := readBEu32(f.code[f.head : f.head+4])
	f.head += 4
	return int32(v), nil
}
