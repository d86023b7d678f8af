package esjit

import "testing"

func TestParseFieldTable(t *testing.T) {
	var b []byte
	b = append(b, 0x00, 0x01, TypeI32) // name=1, type i32, no operand
	b = append(b, 0xBA, 0xBA)

	tbl, err := parseFieldTable(b, 0)
	if err != nil {
		t.Fatalf("parseFieldTable: %v", err)
	}
	if len(tbl.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(tbl.Entries))
	}
	if tbl.Entries[0].Name != 1 || tbl.Entries[0].TypeFlags.typeID() != TypeI32 {
		t.Fatalf("entry = %+v", tbl.Entries[0])
	}
	if tbl.Len != len(b) {
		t.Fatalf("Len = %d, want %d", tbl.Len, len(b))
	}
}

func TestParseFieldTableEmpty(t *testing.T) {
	tbl, err := parseFieldTable([]byte{0xBA, 0xBA}, 0)
	if err != nil {
		t.Fatalf("parseFieldTable: %v", err)
	}
	if len(tbl.Entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(tbl.Entries))
	}
}

func TestParseFieldTableWithObjectOperand(t *testing.T) {
	var b []byte
	b = append(b, 0x00, 0x02, TypeObject, 0x00, 0x03) // name=2, object ref to class constant 3
	b = append(b, 0xBA, 0xBA)

	tbl, err := parseFieldTable(b, 0)
	if err != nil {
		t.Fatalf("parseFieldTable: %v", err)
	}
	if tbl.Entries[0].Operand != 3 {
		t.Fatalf("operand = %d, want 3", tbl.Entries[0].Operand)
	}
}
