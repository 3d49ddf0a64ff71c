package ptcow

// Tick is the time granularity that Events happen at.
type Tick = uint32

// Meas is a measure (bar); it groups beats together. Timing.BeatsPerMeas
// defines how many beats are in a Meas.
type Meas = uint32

// NativeSampleRate is the sample rate PxTone voices internally work with.
const NativeSampleRate = 44100

const (
	defaultTicksPerBeat = 480
	defaultBeatsPerMeas = 4
	defaultBPM          = 120.0
)

// Timing holds the tick-rate metadata of a song.
type Timing struct {
	// How many clock ticks happen during a beat. The higher, the finer the
	// event grid.
	TicksPerBeat uint16
	// Beats per minute. The higher, the faster the song plays.
	BPM float32
	// How many beats are in a measure.
	BeatsPerMeas uint8
}

func defaultTiming() Timing {
	return Timing{
		TicksPerBeat: defaultTicksPerBeat,
		BPM:          defaultBPM,
		BeatsPerMeas: defaultBeatsPerMeas,
	}
}

// TickToMeas converts ticks to measures, rounding any partial measure up.
func (t Timing) TickToMeas(tick Tick) Meas {
	return divCeil(divCeil(tick, uint32(t.TicksPerBeat)), uint32(t.BeatsPerMeas))
}

// MeasToTick converts measures to ticks.
func (t Timing) MeasToTick(meas Meas) Tick {
	return meas * uint32(t.TicksPerBeat) * uint32(t.BeatsPerMeas)
}

// SamplesPerTick calculates how many output samples make up one tick at the
// given output sample rate.
func (t Timing) SamplesPerTick(outSampleRate int) float32 {
	return 60.0 * float32(outSampleRate) / (t.BPM * float32(t.TicksPerBeat))
}

func divCeil(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// tickToSample truncates the same way the reference player does.
func tickToSample(tick Tick, samplesPerTick float32) uint32 {
	return uint32(float32(tick) * samplesPerTick)
}

// measToSample needs float64 to remain sample accurate with original PxTone
// playback.
func measToSample(meas Meas, samplesPerTick float32, t Timing) uint32 {
	return uint32(float64(meas) * float64(t.BeatsPerMeas) * float64(t.TicksPerBeat) * float64(samplesPerTick))
}

// LoopPoints describe where the song ends and starts repeating from.
type LoopPoints struct {
	// The measure the song starts playing from when looped.
	Repeat Meas
	// The last measure the song plays before ending or repeating. Zero means
	// the song lasts until the last event has been played.
	Last Meas
}

// LoopPointsFromTicks converts tick positions into measure loop points.
// A nonzero last tick must land at or after the repeat tick.
func LoopPointsFromTicks(repeat, last Tick, timing Timing) (LoopPoints, error) {
	lp := LoopPoints{
		Repeat: timing.TickToMeas(repeat),
		Last:   timing.TickToMeas(last),
	}
	if last != 0 && lp.Last < lp.Repeat {
		return LoopPoints{}, validationErrorf("loop end measure %d is before loop start measure %d", lp.Last, lp.Repeat)
	}
	return lp, nil
}
