package esjit

const (
	magicValue uint32 = 0xE500C0DE
	headerSize        = 36
)

// Offsets is the header's table-location block: four big-endian u32 byte
// offsets into the image, plus the 16 trailing reserved bytes preserved
// verbatim (§6: implementations must not interpret them).
type Offsets struct {
	ConstantTable uint32
	ClassTable    uint32
	FunctionTable uint32
	FieldTable    uint32
	Reserved      [16]byte
}

// Image is a parsed .esbin binary: the header, its four parsed tables, and
// the backing byte buffer every table's bytecode slices borrow from.
// Sub-structures hold slices into this buffer rather than raw pointers, so
// the buffer must outlive every FunctionDef.Code derived from it — callers
// must keep the Image alive for as long as any NativeFunction built from
// it is still transpiling.
type Image struct {
	buf       []byte
	Offsets   Offsets
	Constants *ConstantTable
	Fields    *FieldTable
	Functions *FunctionTable
	Classes   *ClassTable
}

// Parse decodes a complete .esbin image per §4.3: validates the magic,
// reads the offsets block, then parses the constant table (always at
// offset 36), the class table, and the top-level field and function
// tables at their recorded offsets.
func Parse(bytes []byte) (*Image, error) {
	if len(bytes) < headerSize {
		return nil, errTruncated(0)
	}
	magic, err := readU32(bytes, 0)
	if err != nil {
		return nil, err
	}
	if magic != magicValue {
		return nil, &FormatError{Kind: InvalidMagic, Offset: 0, Detail: "unexpected magic value"}
	}

	offsets, err := parseOffsets(bytes)
	if err != nil {
		return nil, err
	}

	constants, err := parseConstantTable(bytes, headerSize)
	if err != nil {
		return nil, err
	}
	classes, err := parseClassTable(bytes, int(offsets.ClassTable))
	if err != nil {
		return nil, err
	}
	fields, err := parseFieldTable(bytes, int(offsets.FieldTable))
	if err != nil {
		return nil, err
	}
	functions, err := parseFunctionTable(bytes, int(offsets.FunctionTable))
	if err != nil {
		return nil, err
	}

	return &Image{
		buf:       bytes,
		Offsets:   offsets,
		Constants: constants,
		Fields:    fields,
		Functions: functions,
		Classes:   classes,
	}, nil
}

func parseOffsets(b []byte) (Offsets, error) {
	ct, err := readU32(b, 4)
	if err != nil {
		return Offsets{}, err
	}
	clt, err := readU32(b, 8)
	if err != nil {
		return Offsets{}, err
	}
	ft, err := readU32(b, 12)
	if err != nil {
		return Offsets{}, err
	}
	flt, err := readU32(b, 16)
	if err != nil {
		return Offsets{}, err
	}
	reserved, err := sliceAt(b, 20, 16)
	if err != nil {
		return Offsets{}, err
	}
	var off Offsets
	off.ConstantTable = ct
	off.ClassTable = clt
	off.FunctionTable = ft
	off.FieldTable = flt
	copy(off.Reserved[:], reserved)
	return off, nil
}

// FindFunction looks up a top-level function by its name constant index.
func (img *Image) FindFunction(nameIndex uint16) (*FunctionDef, bool) {
	for i := range img.Functions.Entries {
		if img.Functions.Entries[i].Name == nameIndex {
			return &img.Functions.Entries[i], true
		}
	}
	return nil, false
}

// Constant returns the decoded constant at index i, if present.
func (img *Image) Constant(i uint16) (*ConstantDef, bool) {
	if int(i) >= len(img.Constants.Entries) {
		return nil, false
	}
	return &img.Constants.Entries[i], true
}
