package catalog

import "testing"

func TestDeriveMediaClass(t *testing.T) {
	cases := []struct {
		rate, bits int
		want       MediaClass
	}{
		{44100, 16, MediaCD},
		{44100, 24, MediaHDCD},
		{48000, 24, MediaHDCD},
		{1, 1, MediaDSD}, // rate is irrelevant once bits == 1
		{2822400, 1, MediaDSD},
		{88200, 24, MediaDVD},
		{96000, 16, MediaDVD},
		{176400, 24, MediaBD},
		{192000, 24, MediaBD},
		{352800, 24, MediaHR},
		{384000, 32, MediaHR},
		{22050, 16, MediaUnknown},
	}
	for _, c := range cases {
		if got := DeriveMediaClass(c.rate, c.bits); got != c.want {
			t.Errorf("DeriveMediaClass(%d, %d) = %v, want %v", c.rate, c.bits, got, c.want)
		}
	}
}
