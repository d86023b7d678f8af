package esjit

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeBuffer is the write-side counterpart to decode.go's bounds-checked
// reads: a growable byte slice with fixed-width, big-endian appenders. Every
// table type's Encode method writes through one of these and returns its
// backing slice.
type encodeBuffer struct {
	b []byte
}

func (w *encodeBuffer) writeU8(v uint8) {
	w.b = append(w.b, v)
}

func (w *encodeBuffer) writeU16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
}

func (w *encodeBuffer) writeU32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
}

func (w *encodeBuffer) writeU64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
}

func (w *encodeBuffer) writeBytes(p []byte) {
	w.b = append(w.b, p...)
}

func float32ToBEBits(f float32) uint32 { return math.Float32bits(f) }
func float64ToBEBits(f float64) uint64 { return math.Float64bits(f) }

// writeTypeFlags writes a type_flags byte plus its conditional type_operand,
// the inverse of readTypeFlags.
func writeTypeFlags(w *encodeBuffer, flags TypeFlags, operand uint16) {
	w.writeU8(uint8(flags))
	width, ok := hasOperand(flags.typeID())
	if !ok {
		return
	}
	if width == 1 {
		w.writeU8(uint8(operand))
	} else {
		w.writeU16(operand)
	}
}

// encodeConstantValue is the inverse of decodeConstantValue. A
// ValueObjectRef keeps only its operand (the class constant index):
// parseConstantTable reads an object payload of any length but
// decodeConstantValue does not retain it, so this re-emits data_len == 0
// and any original object payload bytes are not written back.
func encodeConstantValue(v ConstantValue) ([]byte, error) {
	switch v.Kind {
	case ValueI8:
		return []byte{byte(v.I8)}, nil
	case ValueI16:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(v.I16))
		return b, nil
	case ValueI32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v.I32))
		return b, nil
	case ValueI64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(v.I64))
		return b, nil
	case ValueF32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, float32ToBEBits(v.F32))
		return b, nil
	case ValueF64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, float64ToBEBits(v.F64))
		return b, nil
	case ValueObjectRef:
		return nil, nil
	case ValueArray:
		return v.ArrayData, nil
	default:
		return nil, fmt.Errorf("esjit: unrecognized ConstantValueKind %d", v.Kind)
	}
}

// encode writes this ConstantDef's wire representation: type_flags,
// conditional type_operand, data_len, payload.
func (cd *ConstantDef) encode(w *encodeBuffer) error {
	writeTypeFlags(w, cd.TypeFlags, cd.Operand)
	payload, err := encodeConstantValue(cd.Value)
	if err != nil {
		return err
	}
	w.writeU32(uint32(len(payload)))
	w.writeBytes(payload)
	return nil
}

// Encode re-emits the constant table from its parsed structure, terminated
// by 0xF00F. Reparsing the result yields an equal ConstantTable when every
// object constant in it had an empty payload; an object constant with a
// non-empty payload comes back with a shorter Len (and so does the table).
func (ct *ConstantTable) Encode() ([]byte, error) {
	w := &encodeBuffer{}
	for i := range ct.Entries {
		if err := ct.Entries[i].encode(w); err != nil {
			return nil, err
		}
	}
	w.writeU16(constantTableTerminator)
	return w.b, nil
}

func (fd *FieldDef) encode(w *encodeBuffer) {
	w.writeU16(fd.Name)
	writeTypeFlags(w, fd.TypeFlags, fd.Operand)
}

// Encode re-emits the field table, terminated by 0xBABA.
func (ft *FieldTable) Encode() []byte {
	w := &encodeBuffer{}
	for i := range ft.Entries {
		ft.Entries[i].encode(w)
	}
	w.writeU16(fieldTableTerminator)
	return w.b
}

func (fn *FunctionDef) encode(w *encodeBuffer) {
	w.writeU16(fn.Name)
	writeTypeFlags(w, fn.ReturnType, fn.ReturnTypeOperand)
	w.writeU16(uint16(len(fn.Args)))
	for _, a := range fn.Args {
		w.writeU8(uint8(a))
	}
	w.writeU64(uint64(len(fn.Code)))
	w.writeBytes(fn.Code)
}

// Encode re-emits the function table, terminated by 0xFADE.
func (ft *FunctionTable) Encode() []byte {
	w := &encodeBuffer{}
	for i := range ft.Entries {
		ft.Entries[i].encode(w)
	}
	w.writeU16(functionTableTerminator)
	return w.b
}

// encode writes name, super_name, the optional field/function tables (or
// the absence sentinel), and the per-class terminator 0xF10F.
func (cd *ClassDef) encode(w *encodeBuffer) error {
	w.writeU16(cd.Name)
	w.writeU16(cd.SuperName)

	if cd.Fields == nil {
		w.writeU64(absentTableSentinel)
	} else {
		w.writeBytes(cd.Fields.Encode())
	}

	if cd.Functions == nil {
		w.writeU64(absentTableSentinel)
	} else {
		w.writeBytes(cd.Functions.Encode())
	}

	w.writeU16(classTerminator)
	return nil
}

// Encode re-emits the class table, terminated by 0xFADE.
func (ct *ClassTable) Encode() ([]byte, error) {
	w := &encodeBuffer{}
	for i := range ct.Entries {
		if err := ct.Entries[i].encode(w); err != nil {
			return nil, err
		}
	}
	w.writeU16(classTableTerminator)
	return w.b, nil
}

// Encode writes the 36-byte header: magic, the four table offsets, and the
// 16 reserved bytes, preserved verbatim per §6.
func (off Offsets) Encode() []byte {
	w := &encodeBuffer{}
	w.writeU32(magicValue)
	w.writeU32(off.ConstantTable)
	w.writeU32(off.ClassTable)
	w.writeU32(off.FunctionTable)
	w.writeU32(off.FieldTable)
	w.writeBytes(off.Reserved[:])
	return w.b
}

// Encode rebuilds a complete .esbin image from its parsed structure: header
// followed by the constant, class, function, and field tables laid out
// contiguously in that order, with offsets recomputed to match. Reparsing
// the result with Parse yields the same four tables (subject to the object
// payload caveat on ConstantTable.Encode) and the same reserved header
// bytes; the four offsets in Offsets are the recomputed ones and may differ
// from the original's, since tables aren't required to sit at any
// particular relative position, only that the header's offsets point at
// them correctly.
func (img *Image) Encode() ([]byte, error) {
	constants, err := img.Constants.Encode()
	if err != nil {
		return nil, err
	}
	classes, err := img.Classes.Encode()
	if err != nil {
		return nil, err
	}
	functions := img.Functions.Encode()
	fields := img.Fields.Encode()

	off := Offsets{Reserved: img.Offsets.Reserved}
	cur := uint32(headerSize)
	off.ConstantTable = cur
	cur += uint32(len(constants))
	off.ClassTable = cur
	cur += uint32(len(classes))
	off.FunctionTable = cur
	cur += uint32(len(functions))
	off.FieldTable = cur

	out := make([]byte, 0, headerSize+len(constants)+len(classes)+len(functions)+len(fields))
	out = append(out, off.Encode()...)
	out = append(out, constants...)
	out = append(out, classes...)
	out = append(out, functions...)
	out = append(out, fields...)
	return out, nil
}
