package esjit

import "testing"

func u32be(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func TestParseConstantTableEmpty(t *testing.T) {
	// Boundary behavior: terminator immediately at the table's start.
	b := []byte{0xF0, 0x0F}
	tbl, err := parseConstantTable(b, 0)
	if err != nil {
		t.Fatalf("parseConstantTable: %v", err)
	}
	if len(tbl.Entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(tbl.Entries))
	}
	if tbl.Len != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len)
	}
}

func TestParseConstantTableNumeric(t *testing.T) {
	var b []byte
	// one i32 constant, value 42
	b = append(b, TypeI32)
	b = append(b, u32be(4)...)
	b = append(b, u32be(42)...)
	// one i8 constant, value -1
	b = append(b, TypeI8)
	b = append(b, u32be(1)...)
	b = append(b, 0xFF)
	b = append(b, 0xF0, 0x0F)

	tbl, err := parseConstantTable(b, 0)
	if err != nil {
		t.Fatalf("parseConstantTable: %v", err)
	}
	if len(tbl.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(tbl.Entries))
	}
	if tbl.Entries[0].Value.Kind != ValueI32 || tbl.Entries[0].Value.I32 != 42 {
		t.Fatalf("entry 0 = %+v, want I32=42", tbl.Entries[0].Value)
	}
	if tbl.Entries[1].Value.Kind != ValueI8 || tbl.Entries[1].Value.I8 != -1 {
		t.Fatalf("entry 1 = %+v, want I8=-1", tbl.Entries[1].Value)
	}
	if tbl.Len != len(b) {
		t.Fatalf("Len = %d, want %d", tbl.Len, len(b))
	}
}

func TestParseConstantTableBadPayloadLen(t *testing.T) {
	var b []byte
	b = append(b, TypeI32)
	b = append(b, u32be(2)...) // wrong: i32 must be 4 bytes
	b = append(b, 0x00, 0x01)
	b = append(b, 0xF0, 0x0F)

	_, err := parseConstantTable(b, 0)
	fe, ok := err.(*FormatError)
	if !ok || fe.Kind != BadPayloadLen {
		t.Fatalf("err = %v, want Format(BadPayloadLen)", err)
	}
}

func TestParseConstantTableIllegalTypeId(t *testing.T) {
	b := []byte{0x09, 0x00, 0x00, 0x00, 0x00, 0xF0, 0x0F} // 0x9 is not a known type id
	_, err := parseConstantTable(b, 0)
	fe, ok := err.(*FormatError)
	if !ok || fe.Kind != IllegalTypeId {
		t.Fatalf("err = %v, want Format(IllegalTypeId)", err)
	}
}

func TestParseConstantTableMissingTerminator(t *testing.T) {
	// Truncated mid-scan must surface as MissingTerminator, not Truncated
	// (Open Question 2 of SPEC_FULL.md).
	b := []byte{TypeI32, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00} // payload cut short, no terminator
	_, err := parseConstantTable(b, 0)
	fe, ok := err.(*FormatError)
	if !ok || fe.Kind != MissingTerminator {
		t.Fatalf("err = %v, want Format(MissingTerminator)", err)
	}
}

func TestParseConstantTableObjectAndArray(t *testing.T) {
	var b []byte
	// object constant referencing class constant index 7
	b = append(b, TypeObject, 0x00, 0x07)
	b = append(b, u32be(0)...) // empty payload, interpretation deferred
	// array of i8 elements, 3 bytes
	b = append(b, TypeArray, TypeI8)
	b = append(b, u32be(3)...)
	b = append(b, 0x01, 0x02, 0x03)
	b = append(b, 0xF0, 0x0F)

	tbl, err := parseConstantTable(b, 0)
	if err != nil {
		t.Fatalf("parseConstantTable: %v", err)
	}
	if tbl.Entries[0].Value.Kind != ValueObjectRef || tbl.Entries[0].Value.ObjectRef != 7 {
		t.Fatalf("entry 0 = %+v, want ObjectRef=7", tbl.Entries[0].Value)
	}
	arr := tbl.Entries[1].Value
	if arr.Kind != ValueArray || arr.ArrayType != TypeI8 || len(arr.ArrayData) != 3 {
		t.Fatalf("entry 1 = %+v, want Array[I8] len 3", arr)
	}
}
