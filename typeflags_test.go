package esjit

import "testing"

func TestReadTypeFlagsNoOperand(t *testing.T) {
	b := []byte{TypeI64, 0xFF}
	flags, operand, consumed, err := readTypeFlags(b, 0)
	if err != nil {
		t.Fatalf("readTypeFlags: %v", err)
	}
	if flags.typeID() != TypeI64 || operand != 0 || consumed != 1 {
		t.Fatalf("got flags=%v operand=%d consumed=%d", flags, operand, consumed)
	}
}

func TestReadTypeFlagsArrayOperand(t *testing.T) {
	b := []byte{TypeArray, TypeF64}
	_, operand, consumed, err := readTypeFlags(b, 0)
	if err != nil {
		t.Fatalf("readTypeFlags: %v", err)
	}
	if operand != TypeF64 || consumed != 2 {
		t.Fatalf("got operand=%d consumed=%d", operand, consumed)
	}
}

func TestReadTypeFlagsObjectOperand(t *testing.T) {
	b := []byte{TypeObject, 0x01, 0x02}
	_, operand, consumed, err := readTypeFlags(b, 0)
	if err != nil {
		t.Fatalf("readTypeFlags: %v", err)
	}
	if operand != 0x0102 || consumed != 3 {
		t.Fatalf("got operand=%#x consumed=%d", operand, consumed)
	}
}

func TestReadTypeFlagsReservedModifierBitsRejected(t *testing.T) {
	b := []byte{TypeI8 | 0x20} // bit 5 set, reserved
	_, _, _, err := readTypeFlags(b, 0)
	fe, ok := err.(*FormatError)
	if !ok || fe.Kind != IllegalTypeModifier {
		t.Fatalf("err = %v, want Format(IllegalTypeModifier)", err)
	}
}

func TestReadTypeFlagsSignedBitAllowed(t *testing.T) {
	b := []byte{TypeI32 | 0x10}
	flags, _, _, err := readTypeFlags(b, 0)
	if err != nil {
		t.Fatalf("readTypeFlags: %v", err)
	}
	if !flags.Signed() {
		t.Fatalf("Signed() = false, want true")
	}
}

func TestReadTypeFlagsIllegalTypeId(t *testing.T) {
	b := []byte{0x07} // reserved, unassigned type id
	_, _, _, err := readTypeFlags(b, 0)
	fe, ok := err.(*FormatError)
	if !ok || fe.Kind != IllegalTypeId {
		t.Fatalf("err = %v, want Format(IllegalTypeId)", err)
	}
}
