package scanner

import "testing"

func TestDecodeIEEEExtended_CDSampleRate(t *testing.T) {
	// 44100.0 encoded as an 80-bit IEEE-754 extended float, the value every
	// CD-quality AIFF COMM chunk carries.
	bytes := [10]byte{0x40, 0x0E, 0xAC, 0x44, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	got := decodeIEEEExtended(bytes)
	if got < 44099.9 || got > 44100.1 {
		t.Fatalf("want approximately 44100, got %v", got)
	}
}

func TestDecodeIEEEExtended_ZeroValue(t *testing.T) {
	var bytes [10]byte
	if got := decodeIEEEExtended(bytes); got != 0 {
		t.Fatalf("want 0, got %v", got)
	}
}
