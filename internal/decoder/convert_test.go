package decoder

import "testing"

func TestWiden_16To24WithoutDitherZeroPadsLowByte(t *testing.T) {
	src := []byte{0x11, 0x22} // one 16-bit sample, little-endian
	out := Widen(src, 16, 24, false)
	if len(out) != 3 {
		t.Fatalf("want 3 output bytes, got %d", len(out))
	}
	if out[0] != 0 || out[1] != 0x11 || out[2] != 0x22 {
		t.Fatalf("want [0,0x11,0x22], got %v", out)
	}
}

func TestWiden_SameWidthReturnsUnchanged(t *testing.T) {
	src := []byte{0xAA, 0xBB, 0xCC}
	out := Widen(src, 24, 24, false)
	if len(out) != len(src) {
		t.Fatalf("want length unchanged, got %d", len(out))
	}
}

func TestPackDoP_MarkerByteAlternates(t *testing.T) {
	dsd := []byte{0x01, 0x02, 0x03, 0x04}
	out, next := PackDoP(dsd, 3, false)
	if len(out) != 6 {
		t.Fatalf("want 6 output bytes, got %d", len(out))
	}
	if out[2] != 0x05 {
		t.Fatalf("want the first marker byte to be 0x05, got %#x", out[2])
	}
	if out[5] != 0xFA {
		t.Fatalf("want the second marker byte to be 0xFA, got %#x", out[5])
	}
	if next {
		t.Fatal("want the next starting parity to be false (0x05) after two words")
	}
}

func TestDoPSilence_SilenceBytePattern(t *testing.T) {
	out, _ := DoPSilence(1, 3, false)
	if out[0] != 0x69 || out[1] != 0x69 {
		t.Fatalf("want the silence payload 0x69 0x69, got %v", out[:2])
	}
}
