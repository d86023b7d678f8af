package esjit

const functionTableTerminator uint16 = 0xFADE

// FunctionDef is one decoded bytecode function: its signature plus the raw
// bytecode region (a slice into the image's backing buffer — the image
// outlives every FunctionDef it produced, so this is safe to hold without
// copying; see Image's ownership discipline in image.go).
type FunctionDef struct {
	Name               uint16
	ReturnType         TypeFlags
	ReturnTypeOperand  uint16
	Args               []TypeFlags
	Code               []byte
	Len                int
}

type FunctionTable struct {
	Entries []FunctionDef
	Len     int
}

func parseFunctionTable(b []byte, off int) (*FunctionTable, error) {
	start := off
	cur := off
	var entries []FunctionDef
	for {
		term, err := peekU16(b, cur)
		if err == nil && term == functionTableTerminator {
			cur += 2
			return &FunctionTable{Entries: entries, Len: cur - start}, nil
		}
		def, recLen, err := parseOneFunction(b, cur)
		if err != nil {
			return nil, asMissingTerminator(err, start)
		}
		entries = append(entries, def)
		cur += recLen
	}
}

func parseOneFunction(b []byte, off int) (FunctionDef, int, error) {
	name, err := readU16(b, off)
	if err != nil {
		return FunctionDef{}, 0, err
	}
	cur := off + 2

	retFlags, retOperand, consumed, err := readTypeFlags(b, cur)
	if err != nil {
		return FunctionDef{}, 0, err
	}
	cur += consumed

	argsLen, err := readU16(b, cur)
	if err != nil {
		return FunctionDef{}, 0, err
	}
	cur += 2

	args := make([]TypeFlags, 0, argsLen)
	for i := 0; i < int(argsLen); i++ {
		raw, err := readU8(b, cur)
		if err != nil {
			return FunctionDef{}, 0, err
		}
		flags := TypeFlags(raw)
		if err := flags.validateModifier(cur); err != nil {
			return FunctionDef{}, 0, err
		}
		if !isKnownType(flags.typeID()) {
			return FunctionDef{}, 0, &FormatError{Kind: IllegalTypeId, Offset: cur, Detail: "unrecognized argument type id"}
		}
		args = append(args, flags)
		cur++
	}

	codeLen, err := readU64(b, cur)
	if err != nil {
		return FunctionDef{}, 0, err
	}
	cur += 8

	code, err := sliceAt(b, cur, int(codeLen))
	if err != nil {
		return FunctionDef{}, 0, err
	}
	cur += int(codeLen)

	def := FunctionDef{
		Name:              name,
		ReturnType:        retFlags,
		ReturnTypeOperand: retOperand,
		Args:              args,
		Code:              code,
		Len:               cur - off,
	}
	return def, cur - off, nil
}
