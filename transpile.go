package esjit

import (
	"encoding/binary"
	"runtime"
)

// Bytecode opcodes for the reference ISA.
const (
	opNOP  = 0x00
	opADD  = 0x01
	opSUB  = 0x02
	opMUL  = 0x03
	opDIV  = 0x04
	opGOTO = 0x05
	opRET  = 0x1A

	insnSigned = 0x80 // high bit of the opcode envelope
)

// CodeRegion describes the machine code a successful transpile emitted:
// Addr is the page's absolute base address (where the code starts) and
// Size is the number of bytes emitted.
type CodeRegion struct {
	Addr uintptr
	Size int
}

// codeBuffer tracks the write cursor into a growable RW Page, mirroring
// §4.5's code_size/alloc_size/new_dest bookkeeping.
type codeBuffer struct {
	page *Page
	size int // bytes written so far
}

func (cb *codeBuffer) ensure(n int) error {
	if cb.size+n <= cb.page.Size() {
		return nil
	}
	return cb.page.GrowInPlace(cb.size + n)
}

func (cb *codeBuffer) emit(bs ...byte) error {
	if err := cb.ensure(len(bs)); err != nil {
		return err
	}
	copy(cb.page.Bytes()[cb.size:], bs)
	cb.size += len(bs)
	return nil
}

// patchAt overwrites 4 bytes already emitted at a fixed machine offset;
// used only for GOTO backpatching once the target is known.
func (cb *codeBuffer) patchAt(off int, v int32) {
	binary.LittleEndian.PutUint32(cb.page.Bytes()[off:off+4], uint32(v))
}

type gotoPatch struct {
	immOffset int // machine offset of the rel32 immediate
	targetBC  int // bytecode offset the GOTO targets
	bcOffset  int // bytecode offset of the GOTO itself, for error reporting
}

// Transpile lowers one RawFunction's bytecode into x86-64 machine code
// written into page (obtained from AllocRW), per the algorithm in §4.5:
// a single linear pass that dispatches on opcode, growing the code buffer
// on demand, followed by a backpatch pass over any GOTOs (Open Question 4
// of SPEC_FULL.md: bytecode-offset -> machine-offset map built while
// emitting, since by the time RET is reached every instruction start in
// the function has a known machine offset, including ones GOTO jumped to
// before they were emitted).
func Transpile(rf *RawFunction, page *Page) (*CodeRegion, error) {
	if runtime.GOARCH != "amd64" {
		return nil, &TranspileError{Kind: UnsupportedPlatform, Detail: runtime.GOARCH}
	}

	cb := &codeBuffer{page: page}
	regs := &registerFile{}
	bcToMC := make(map[int]int)
	var patches []gotoPatch

	for {
		if rf.done() {
			return nil, &TranspileError{Kind: UnterminatedFunction}
		}
		raw, bcOff, _ := rf.next()
		bcToMC[bcOff] = cb.size
		signed := raw&insnSigned != 0
		base := raw &^ insnSigned

		switch base {
		case opNOP:
			if err := cb.emit(0x90); err != nil {
				return nil, err
			}

		case opADD, opSUB, opMUL, opDIV:
			if err := emitArith(cb, regs, base, signed); err != nil {
				return nil, err
			}

		case opGOTO:
			rel, err := rf.readI32()
			if err != nil {
				return nil, &TranspileError{Kind: UnterminatedFunction}
			}
			targetBC := bcOff + 1 + 4 + int(rel)
			if err := cb.emit(0xE9, 0, 0, 0, 0); err != nil {
				return nil, err
			}
			patches = append(patches, gotoPatch{
				immOffset: cb.size - 4,
				targetBC:  targetBC,
				bcOffset:  bcOff,
			})

		case opRET:
			if err := cb.emit(0xC3); err != nil {
				return nil, err
			}
			if err := backpatchGotos(cb, bcToMC, patches); err != nil {
				return nil, err
			}
			return &CodeRegion{Addr: page.Addr(), Size: cb.size}, nil

		default:
			return nil, &TranspileError{Kind: IllegalInsn, Offset: bcOff, Opcode: raw}
		}
	}
}

func backpatchGotos(cb *codeBuffer, bcToMC map[int]int, patches []gotoPatch) error {
	for _, p := range patches {
		targetMC, ok := bcToMC[p.targetBC]
		if !ok {
			return &TranspileError{Kind: IllegalInsn, Offset: p.bcOffset, Detail: "unresolved GOTO target"}
		}
		rel := int32(targetMC - (p.immOffset + 4))
		cb.patchAt(p.immOffset, rel)
	}
	return nil
}

// emitArith implements Open Question 3's operand-selection policy: the
// two lowest-numbered live registers are the operands (allocating fresh
// ones, lowest free bit first, if fewer than two are live yet); the
// source register is freed after the op and the destination (the
// lower-numbered of the pair) stays live holding the result.
func emitArith(cb *codeBuffer, regs *registerFile, op byte, signed bool) error {
	live := regs.liveIndices()
	for len(live) < 2 {
		regs.allocLowest()
		live = regs.liveIndices()
	}
	dst, src := live[0], live[1]

	var err error
	switch op {
	case opADD:
		err = emitAddSub(cb, 0x01, dst, src)
	case opSUB:
		err = emitAddSub(cb, 0x29, dst, src)
	case opMUL:
		err = emitIMul(cb, dst, src)
	case opDIV:
		err = emitDiv(cb, dst, src, signed)
	}
	if err != nil {
		return err
	}
	regs.free(src)
	return nil
}

func rex(w, r, x, b bool) byte {
	var v byte = 0x40
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

func modRM(mod, reg, rm uint8) byte {
	return (mod << 6) | ((reg & 7) << 3) | (rm & 7)
}

// emitAddSub emits `opcode /r` with reg=src, rm=dst — i.e. dst (op)= src,
// the "ADD/SUB r/m64, r64" encoding.
func emitAddSub(cb *codeBuffer, opcode byte, dst, src int) error {
	dstEnc, srcEnc := amd64Registers[dst].Encoding, amd64Registers[src].Encoding
	return cb.emit(
		rex(true, srcEnc >= 8, false, dstEnc >= 8),
		opcode,
		modRM(3, srcEnc, dstEnc),
	)
}

// emitIMul emits `0F AF /r`, "IMUL r64, r/m64": reg=dst, rm=src, so
// dst *= src.
func emitIMul(cb *codeBuffer, dst, src int) error {
	dstEnc, srcEnc := amd64Registers[dst].Encoding, amd64Registers[src].Encoding
	return cb.emit(
		rex(true, dstEnc >= 8, false, srcEnc >= 8),
		0x0F, 0xAF,
		modRM(3, dstEnc, srcEnc),
	)
}

// emitMovRegReg emits `MOV r/m64, r64` (0x89 /r): dst = src.
func emitMovRegReg(cb *codeBuffer, dst, src int) error {
	dstEnc, srcEnc := amd64Registers[dst].Encoding, amd64Registers[src].Encoding
	return cb.emit(
		rex(true, srcEnc >= 8, false, dstEnc >= 8),
		0x89,
		modRM(3, srcEnc, dstEnc),
	)
}

func emitPush(cb *codeBuffer, idx int) error {
	enc := amd64Registers[idx].Encoding
	if enc >= 8 {
		return cb.emit(rex(false, false, false, true), 0x50+(enc&7))
	}
	return cb.emit(0x50 + enc)
}

func emitPop(cb *codeBuffer, idx int) error {
	enc := amd64Registers[idx].Encoding
	if enc >= 8 {
		return cb.emit(rex(false, false, false, true), 0x58+(enc&7))
	}
	return cb.emit(0x58 + enc)
}

// emitDiv lowers DIV/IDIV, which the ISA fixes to RAX:RDX regardless of
// which logical registers hold the operands: it stages the divisor into
// the reserved scratch register first (so clobbering RAX/RDX next can't
// lose it even if the divisor happened to live in one of them), saves
// RAX/RDX across the instruction when they aren't already the operands
// being consumed, and leaves the quotient in dst.
func emitDiv(cb *codeBuffer, dst, src int, signed bool) error {
	const regRAX, regRDX = 0, 2

	if err := emitMovRegReg(cb, scratchReg, src); err != nil {
		return err
	}
	if dst != regRAX {
		if err := emitPush(cb, regRAX); err != nil {
			return err
		}
		if err := emitMovRegReg(cb, regRAX, dst); err != nil {
			return err
		}
	}
	if dst != regRDX {
		if err := emitPush(cb, regRDX); err != nil {
			return err
		}
	}
	if signed {
		if err := cb.emit(rex(true, false, false, false), 0x99); err != nil { // CQO
			return err
		}
	} else {
		if err := cb.emit(rex(true, false, false, false), 0x31, modRM(3, regRDX, regRDX)); err != nil { // XOR RDX,RDX
			return err
		}
	}
	scratchEnc := amd64Registers[scratchReg].Encoding
	divOp := uint8(6) // DIV /6
	if signed {
		divOp = 7 // IDIV /7
	}
	if err := cb.emit(rex(true, false, false, scratchEnc >= 8), 0xF7, modRM(3, divOp, scratchEnc)); err != nil {
		return err
	}
	if dst != regRAX {
		if err := emitMovRegReg(cb, dst, regRAX); err != nil {
			return err
		}
	}
	if dst != regRDX {
		if err := emitPop(cb, regRDX); err != nil {
			return err
		}
	}
	if dst != regRAX {
		if err := emitPop(cb, regRAX); err != nil {
			return err
		}
	}
	return nil
}
