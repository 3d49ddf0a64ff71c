package ptcow

import (
	"math"
	"testing"
)

func TestDelayRebuildBadFrequency(t *testing.T) {
	timing := Timing{TicksPerBeat: 480, BPM: 120, BeatsPerMeas: 4}
	for _, freq := range []float32{0, -1, float32(math.NaN()), 1e-30} {
		d := Delay{Unit: DelayUnitSecond, Rate: 25, Freq: freq}
		d.rebuild(timing, 44100)
		if len(d.bufs[0]) != 0 || len(d.bufs[1]) != 0 {
			t.Errorf("freq %v: got a %v sample buffer, expected the delay disabled", freq, len(d.bufs[0]))
		}
	}

	d := Delay{Unit: DelayUnitSecond, Rate: 25, Freq: 4}
	d.rebuild(timing, 44100)
	if want := 44100 / 4; len(d.bufs[0]) != want {
		t.Errorf("got a %v sample buffer, expected %v", len(d.bufs[0]), want)
	}
}
