package ptcow

import (
	"math"
	"testing"
)

func TestPulseFreqOctaves(t *testing.T) {
	// key units are 1/256th of a semitone; the reference key 0 plays the
	// voice at its native rate
	if got := pulseFreq(0); got != 1 {
		t.Errorf("pulseFreq(0) = %v, expected 1", got)
	}
	cases := []struct {
		key  int32
		want float64
	}{
		{12 * 256, 2},
		{24 * 256, 4},
		{-12 * 256, 0.5},
		{-24 * 256, 0.25},
	}
	for _, c := range cases {
		got := float64(pulseFreq(c.key))
		if math.Abs(got-c.want)/c.want > 1e-4 {
			t.Errorf("pulseFreq(%v) = %v, expected about %v", c.key, got, c.want)
		}
	}
}

func TestPulseFreqMonotonic(t *testing.T) {
	prev := pulseFreq(-0x6000)
	for key := int32(-0x6000 + 16); key < 0x6000; key += 16 {
		f := pulseFreq(key)
		if f < prev {
			t.Fatalf("pulseFreq decreased at key %v: %v after %v", key, f, prev)
		}
		prev = f
	}
}

func TestPulseFreqClamps(t *testing.T) {
	if pulseFreq(math.MinInt32/2) != pulseFreqTable[0] {
		t.Errorf("very low keys must clamp to the table start")
	}
	if pulseFreq(math.MaxInt32/2) != pulseFreqTable[freqTableSize-1] {
		t.Errorf("very high keys must clamp to the table end")
	}
}

func TestDivideOctaveRate(t *testing.T) {
	for _, divi := range []int{12, 192} {
		x := divideOctaveRate(divi)
		pow := 1.0
		for i := 0; i < divi; i++ {
			pow *= x
		}
		if pow > 2 || pow < 1.999 {
			t.Errorf("divideOctaveRate(%v)^%v = %v, expected just under 2", divi, divi, pow)
		}
	}
}

func TestPanTimeOffsets(t *testing.T) {
	if got := PanTime(64).ToLROffsets(44100); got != [2]uint8{0, 0} {
		t.Errorf("centered pan time gave offsets %v", got)
	}
	left := PanTime(64 + 10).ToLROffsets(44100)
	if left[0] != 10 || left[1] != 0 {
		t.Errorf("pan time 74 gave offsets %v, expected {10 0}", left)
	}
	right := PanTime(64 - 10).ToLROffsets(44100)
	if right[0] != 0 || right[1] != 10 {
		t.Errorf("pan time 54 gave offsets %v, expected {0 10}", right)
	}
	for _, p := range []PanTime{1, 32, 64, 96, 127} {
		offs := p.ToLROffsets(44100)
		if got := PanTimeFromLROffsets(offs, 44100); got != p {
			t.Errorf("pan time %v converted to %v and back to %v", p, offs, got)
		}
	}
	// at half the native rate the raw offsets double
	if got := PanTime(64 + 10).ToLROffsets(22050); got[0] != 20 {
		t.Errorf("pan time 74 at 22050 Hz gave offset %v, expected 20", got[0])
	}
}
