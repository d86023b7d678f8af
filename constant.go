package esjit

const constantTableTerminator uint16 = 0xF00F

// ConstantValue is a tagged sum over every constant value kind, rather
// than a raw pointer slot reinterpreted by type id. Only the field(s)
// named for the Kind are meaningful (two, ArrayType and ArrayData, for
// ValueArray; one for every other Kind).
type ConstantValueKind int

const (
	ValueI8 ConstantValueKind = iota
	ValueI16
	ValueI32
	ValueI64
	ValueF32
	ValueF64
	ValueObjectRef
	ValueArray
)

type ConstantValue struct {
	Kind      ConstantValueKind
	I8        int8
	I16       int16
	I32       int32
	I64       int64
	F32       float32
	F64       float64
	ObjectRef uint16 // constant index of the referenced class, Kind == ValueObjectRef
	ArrayType uint8  // element type id, Kind == ValueArray
	ArrayData []byte // element payload, Kind == ValueArray
}

// ConstantDef is one decoded record of the constant table.
type ConstantDef struct {
	TypeFlags TypeFlags
	Operand   uint16 // meaningful only for TypeObject/TypeArray
	Value     ConstantValue
	Len       int // total encoded length, including any operand and terminator-adjacent bytes are NOT included
}

// ConstantTable is the ordered, parsed sequence of ConstantDefs ending at
// the 0xF00F terminator.
type ConstantTable struct {
	Entries []ConstantDef
	Len     int // byte distance from table start to (and including) the terminator
}

func decodeConstantValue(flags TypeFlags, operand uint16, payload []byte, off int) (ConstantValue, error) {
	id := flags.typeID()
	switch id {
	case TypeI8:
		return ConstantValue{Kind: ValueI8, I8: int8(payload[0])}, nil
	case TypeI16:
		return ConstantValue{Kind: ValueI16, I16: int16(readBEu16(payload))}, nil
	case TypeI32:
		return ConstantValue{Kind: ValueI32, I32: int32(readBEu32(payload))}, nil
	case TypeI64:
		return ConstantValue{Kind: ValueI64, I64: int64(readBEu64(payload))}, nil
	case TypeF32:
		return ConstantValue{Kind: ValueF32, F32: beBitsToFloat32(readBEu32(payload))}, nil
	case TypeF64:
		return ConstantValue{Kind: ValueF64, F64: beBitsToFloat64(readBEu64(payload))}, nil
	case TypeObject:
		return ConstantValue{Kind: ValueObjectRef, ObjectRef: operand}, nil
	case TypeArray:
		elemType := uint8(operand)
		data := make([]byte, len(payload))
		copy(data, payload)
		return ConstantValue{Kind: ValueArray, ArrayType: elemType, ArrayData: data}, nil
	default:
		return ConstantValue{}, &FormatError{Kind: IllegalTypeId, Offset: off, Detail: "unrecognized type id"}
	}
}

// parseConstantTable scans a scan-until-terminator table starting at off,
// per §4.2: read prefix, read conditional operand, read data_len + payload,
// peek for the terminator, loop.
func parseConstantTable(b []byte, off int) (*ConstantTable, error) {
	start := off
	cur := off
	var entries []ConstantDef
	for {
		term, err := peekU16(b, cur)
		if err == nil && term == constantTableTerminator {
			cur += 2
			return &ConstantTable{Entries: entries, Len: cur - start}, nil
		}
		flags, operand, consumed, err := readTypeFlags(b, cur)
		if err != nil {
			return nil, asMissingTerminator(err, start)
		}
		afterFlags := cur + consumed
		dataLen, err := readU32(b, afterFlags)
		if err != nil {
			return nil, asMissingTerminator(err, start)
		}
		payloadOff := afterFlags + 4
		payload, err := sliceAt(b, payloadOff, int(dataLen))
		if err != nil {
			return nil, asMissingTerminator(err, start)
		}

		id := flags.typeID()
		if isNumericType(id) {
			if int(dataLen) != numericWidth(id) {
				return nil, &FormatError{Kind: BadPayloadLen, Offset: cur, Detail: "numeric constant payload length mismatch"}
			}
		}

		val, err := decodeConstantValue(flags, operand, payload, cur)
		if err != nil {
			return nil, err
		}

		recLen := payloadOff + int(dataLen) - cur
		entries = append(entries, ConstantDef{
			TypeFlags: flags,
			Operand:   operand,
			Value:     val,
			Len:       recLen,
		})
		cur = payloadOff + int(dataLen)
	}
}
