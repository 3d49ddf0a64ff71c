package ptcow

import "log"

// DelayUnit says what unit a delay frequency is measured in.
type DelayUnit uint16

const (
	// DelayUnitBeat measures in beats; how long a beat is follows from
	// Timing.BPM.
	DelayUnitBeat DelayUnit = iota
	// DelayUnitMeas measures in measures.
	DelayUnitMeas
	// DelayUnitSecond measures in seconds.
	DelayUnitSecond
)

// Delay is an echo effect on one sample group.
type Delay struct {
	Unit DelayUnit
	// Index of the group the delay applies to.
	Group uint8
	// How much of the delayed signal is fed back, in percent.
	Rate uint8
	// How many delay periods fit in one Unit.
	Freq float32

	offset int
	bufs   [MaxChannels][]int32
}

// Never allocate a delay buffer with more samples than this (~67 megabytes
// per channel).
const maxDelayBufLen = 1 << 24

// rebuild sizes the internal buffers for the given timing and output rate.
// A zero frequency or an overlong buffer disables the delay.
func (d *Delay) rebuild(t Timing, outSampleRate int) {
	d.offset = 0
	d.bufs = [MaxChannels][]int32{}
	if !(d.Freq > 0) {
		log.Printf("delay: frequency %v not usable, skipping", d.Freq)
		return
	}
	var size float32
	switch d.Unit {
	case DelayUnitBeat:
		size = float32(outSampleRate) * 60 / t.BPM / d.Freq
	case DelayUnitMeas:
		size = float32(outSampleRate) * 60 * float32(t.BeatsPerMeas) / t.BPM / d.Freq
	case DelayUnitSecond:
		size = float32(outSampleRate) / d.Freq
	}
	// the comparison also throws out NaN sizes from a bad BPM
	if !(size >= 0) || size > maxDelayBufLen {
		log.Printf("delay: buffer of %v samples not usable, skipping", size)
		return
	}
	for ch := range d.bufs {
		d.bufs[ch] = make([]int32, int(size))
	}
}

// toneSupple mixes the delayed signal into the group and records the result
// for the next echo.
func (d *Delay) toneSupple(ch int, groups *groupSamples) {
	if d.offset >= len(d.bufs[ch]) {
		d.offset = 0
		return
	}
	groups[d.Group] += d.bufs[ch][d.offset] * int32(d.Rate) / 100
	d.bufs[ch][d.offset] = groups[d.Group]
}

func (d *Delay) toneIncrement() {
	d.offset++
	if d.offset >= len(d.bufs[0]) {
		d.offset = 0
	}
}

// On the wire: u16 unit, u16 group, f32 rate, f32 freq. The rate is an
// integer but stored as a float.
const delayChunkSize = 12

func readDelay(r *reader) (Delay, error) {
	size, err := r.u32("size")
	if err != nil {
		return Delay{}, err
	}
	if size != delayChunkSize {
		return Delay{}, r.malformed("size")
	}
	unit, err := r.u16("unit")
	if err != nil {
		return Delay{}, err
	}
	if unit > uint16(DelayUnitSecond) {
		return Delay{}, r.malformed("unit")
	}
	group, err := r.u16("group")
	if err != nil {
		return Delay{}, err
	}
	if group >= GroupCount {
		return Delay{}, r.malformed("group")
	}
	rate, err := r.f32("rate")
	if err != nil {
		return Delay{}, err
	}
	freq, err := r.f32("freq")
	if err != nil {
		return Delay{}, err
	}
	if freq != freq || freq < 0 {
		return Delay{}, r.malformed("freq")
	}
	// the rate saturates to a byte rather than wrapping
	if rate != rate || rate < 0 {
		rate = 0
	} else if rate > 255 {
		rate = 255
	}
	return Delay{
		Unit:  DelayUnit(unit),
		Group: uint8(group),
		Rate:  uint8(rate),
		Freq:  freq,
	}, nil
}

func (d *Delay) write(out []byte) []byte {
	out = append(out, tagEffeDELA...)
	out = appendU32(out, delayChunkSize)
	out = appendU16(out, uint16(d.Unit))
	out = appendU16(out, uint16(d.Group))
	out = appendF32(out, float32(d.Rate))
	return appendF32(out, d.Freq)
}
