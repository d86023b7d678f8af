package esjit

import (
	"encoding/binary"
	"math"
)

// Byte-stream decoder: fixed-width, big-endian primitive reads over the
// image's backing buffer. Every read is bounds-checked against the slice
// length; short reads return a Truncated FormatError rather than
// panicking, per spec ("parsers never panic on malformed input").

func readU8(b []byte, off int) (uint8, error) {
	if off < 0 || off+1 > len(b) {
		return 0, errTruncated(off)
	}
	return b[off], nil
}

func readU16(b []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(b) {
		return 0, errTruncated(off)
	}
	return binary.BigEndian.Uint16(b[off : off+2]), nil
}

func readU32(b []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(b) {
		return 0, errTruncated(off)
	}
	return binary.BigEndian.Uint32(b[off : off+4]), nil
}

func readU64(b []byte, off int) (uint64, error) {
	if off < 0 || off+8 > len(b) {
		return 0, errTruncated(off)
	}
	return binary.BigEndian.Uint64(b[off : off+8]), nil
}

// peekU16 reads a u16 terminator candidate without committing to consuming
// it; callers compare the result against a table's terminator sentinel.
func peekU16(b []byte, off int) (uint16, error) {
	return readU16(b, off)
}

func peekU64(b []byte, off int) (uint64, error) {
	return readU64(b, off)
}

func sliceAt(b []byte, off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(b) {
		return nil, errTruncated(off)
	}
	return b[off : off+n], nil
}

// readBEu16/readBEu32/readBEu64 decode a fixed-width big-endian integer
// from an already-bounds-checked payload slice (the constant table parser
// validates payload length against the type's natural width up front, so
// these never need to report errors).
func readBEu16(p []byte) uint16 { return binary.BigEndian.Uint16(p) }
func readBEu32(p []byte) uint32 { return binary.BigEndian.Uint32(p) }
func readBEu64(p []byte) uint64 { return binary.BigEndian.Uint64(p) }

func beBitsToFloat32(bits uint32) float32 { return math.Float32frombits(bits) }
func beBitsToFloat64(bits uint64) float64 { return math.Float64frombits(bits) }
