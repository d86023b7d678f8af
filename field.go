package esjit

const fieldTableTerminator uint16 = 0xBABA

// FieldDef names a class member by constant index and carries its type.
type FieldDef struct {
	Name      uint16
	TypeFlags TypeFlags
	Operand   uint16
	Len       int
}

type FieldTable struct {
	Entries []FieldDef
	Len     int
}

func parseFieldTable(b []byte, off int) (*FieldTable, error) {
	start := off
	cur := off
	var entries []FieldDef
	for {
		term, err := peekU16(b, cur)
		if err == nil && term == fieldTableTerminator {
			cur += 2
			return &FieldTable{Entries: entries, Len: cur - start}, nil
		}
		name, err := readU16(b, cur)
		if err != nil {
			return nil, asMissingTerminator(err, start)
		}
		flags, operand, consumed, err := readTypeFlags(b, cur+2)
		if err != nil {
			return nil, asMissingTerminator(err, start)
		}
		recLen := 2 + consumed
		entries = append(entries, FieldDef{
			Name:      name,
			TypeFlags: flags,
			Operand:   operand,
			Len:       recLen,
		})
		cur += recLen
	}
}
