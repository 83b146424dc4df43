package decoder

import "math/rand"

// dopMarkerEven and dopMarkerOdd are the alternating marker bytes DoP
// ("DSD over PCM") places in the top byte of each wrapped word (§4.5
// "Conversion").
const (
	dopMarkerEven byte = 0x05
	dopMarkerOdd  byte = 0xFA
)

// dsdSilenceByte is the bit pattern DSD silence uses, repeated to fill a
// sample's DSD payload bytes.
const dsdSilenceByte byte = 0x69

// Widen converts one interleaved PCM sample buffer from srcBits to
// dstBits width, both multiples of 8, optionally adding dither in the
// padding bytes when dstBits > srcBits. Supported paths: 16->16, 16->24,
// 16->32, 24->24, 24->32.
func Widen(src []byte, srcBits, dstBits int, dither bool) []byte {
	if srcBits == dstBits {
		return src
	}
	srcWidth := srcBits / 8
	dstWidth := dstBits / 8
	if srcWidth <= 0 || dstWidth <= 0 || len(src)%srcWidth != 0 {
		return src
	}
	n := len(src) / srcWidth
	out := make([]byte, n*dstWidth)
	for i := 0; i < n; i++ {
		srcSample := src[i*srcWidth : (i+1)*srcWidth]
		dstSample := out[i*dstWidth : (i+1)*dstWidth]
		// Source bytes occupy the high end of the wider container
		// (little-endian: the padding goes at the bottom).
		copy(dstSample[dstWidth-srcWidth:], srcSample)
		for b := 0; b < dstWidth-srcWidth; b++ {
			if dither {
				dstSample[b] = ditherByte()
			} else {
				dstSample[b] = 0
			}
		}
	}
	return out
}

func ditherByte() byte {
	return byte(rand.Intn(256))
}

// PackDoP wraps 1-bit DSD payload bytes into containerWidth-byte (3 or 4)
// PCM words, two DSD bytes per word in the low two byte slots, with an
// alternating marker byte (0x05/0xFA) in the top byte. markerParity
// selects which marker starts the sequence and should alternate call to
// call to keep the alternation continuous across buffer boundaries.
func PackDoP(dsd []byte, containerWidth int, markerParity bool) (out []byte, nextParity bool) {
	if containerWidth != 3 && containerWidth != 4 {
		containerWidth = 3
	}
	pairs := len(dsd) / 2
	out = make([]byte, pairs*containerWidth)
	parity := markerParity
	for i := 0; i < pairs; i++ {
		word := out[i*containerWidth : (i+1)*containerWidth]
		marker := dopMarkerEven
		if parity {
			marker = dopMarkerOdd
		}
		// Low two bytes carry the DSD payload; remaining bytes (if any,
		// for the 32-bit container) sit between the payload and marker
		// and are left zero; the marker occupies the top byte.
		word[0] = dsd[i*2]
		word[1] = dsd[i*2+1]
		word[len(word)-1] = marker
		parity = !parity
	}
	return out, parity
}

// DoPSilence returns n containerWidth-byte DoP words encoding DSD
// silence (payload pattern 0x69 0x69), alternating the marker byte.
func DoPSilence(n, containerWidth int, markerParity bool) (out []byte, nextParity bool) {
	if containerWidth != 3 && containerWidth != 4 {
		containerWidth = 3
	}
	out = make([]byte, n*containerWidth)
	parity := markerParity
	for i := 0; i < n; i++ {
		word := out[i*containerWidth : (i+1)*containerWidth]
		marker := dopMarkerEven
		if parity {
			marker = dopMarkerOdd
		}
		word[0] = dsdSilenceByte
		word[1] = dsdSilenceByte
		word[len(word)-1] = marker
		parity = !parity
	}
	return out, parity
}
