package catalog

// validSampleRates is the enumerated rate set a stream facet's sample rate
// must belong to (§3 "Stream facet").
var validSampleRates = map[int]bool{
	44100: true, 48000: true, 88200: true, 96000: true,
	176400: true, 192000: true, 352800: true, 384000: true,
}

// ValidStreamFacet reports whether sampleRate and bits fall within the
// enumerated sets a stream facet allows (§3): bits one of {1, 2, 16, 24},
// rate one of the eight standard PCM rates — except for 1-bit DSD, whose
// rate is the raw DSD bit rate (e.g. 2822400 for DSD64) rather than one of
// those PCM rates, matching DeriveMediaClass's "any rate" DSD bucket.
// Scanners check this alongside channel count before accepting a song.
func ValidStreamFacet(sampleRate, bits int) bool {
	switch bits {
	case 1:
		return sampleRate > 0
	case 2, 16, 24:
		return validSampleRates[sampleRate]
	default:
		return false
	}
}

// DeriveMediaClass buckets a stream by its sample rate and bit depth.
//
// The glossary only states the boundaries for CD, HDCD and DSD (the rates
// that are actually retrievable from the original source); the DVD/BD/HR
// tiers above HDCD are not pinned down anywhere recoverable, so this table
// is this implementation's own defensible mapping, not a literal port:
//
//   - DSD: 1-bit source, any rate (DSD64/128/256 all collapse to MediaDSD).
//   - CD: 44.1kHz, 16-bit exactly.
//   - HDCD: 44.1kHz or 48kHz, more than 16 bits.
//   - DVD: 48kHz-family rates (88.2/96kHz) at any bit depth.
//   - BD: 176.4/192kHz rates, which Blu-ray's PCM tracks commonly carry.
//   - HR: anything faster still (352.8/384kHz) — "high-res" beyond BD.
func DeriveMediaClass(sampleRate, bits int) MediaClass {
	switch {
	case bits == 1:
		return MediaDSD
	case sampleRate == 44100 && bits == 16:
		return MediaCD
	case (sampleRate == 44100 || sampleRate == 48000) && bits > 16:
		return MediaHDCD
	case sampleRate == 88200 || sampleRate == 96000:
		return MediaDVD
	case sampleRate == 176400 || sampleRate == 192000:
		return MediaBD
	case sampleRate == 352800 || sampleRate == 384000:
		return MediaHR
	default:
		return MediaUnknown
	}
}
