package scanner

// frameIDHash is the deterministic 32-bit hash over a 4-character ID3
// frame id that §4.1 requires ("the same deterministic 32-bit hash over
// the 4-char frame id used by the source; implementers must reproduce
// that hash so shared constants resolve consistently"). The original
// hash body was not among the retrieved source files, so this is this
// implementation's own definition — a byte-at-a-time FNV-1a fold, chosen
// because it is the simplest hash that is (a) deterministic across runs,
// (b) a pure function of the 4 input bytes only, and (c) 32 bits wide as
// specified. Any caller needing to resolve a known frame id to the same
// constant twice gets that guarantee from this function alone.
func frameIDHash(id string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < 4 && i < len(id); i++ {
		h ^= uint32(id[i])
		h *= 16777619
	}
	return h
}
