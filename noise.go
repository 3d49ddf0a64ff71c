package ptcow

import "sync"

// NoiseType selects the wave table a noise oscillator runs on.
type NoiseType uint8

const (
	NoiseSine NoiseType = iota
	NoiseSaw
	NoiseRect
	NoiseRandom
	NoiseSaw2
	NoiseRect2
	NoiseTri
	NoiseRandom2
	NoiseRect3
	NoiseRect4
	NoiseRect8
	NoiseRect16
	NoiseSaw3
	NoiseSaw4
	NoiseSaw6
	NoiseSaw8

	noiseTypeCount
)

// NoiseOscillator describes one oscillator of a noise design unit.
type NoiseOscillator struct {
	Type NoiseType
	// Frequency at which the oscillator runs, in units of the 100 Hz base.
	Freq float32
	// Volume in percent.
	Volume float32
	// Phase offset in percent.
	Offset float32
	// Invert the waveform.
	Invert bool
}

// NoiseUnit is one of up to four designs mixed together into a noise voice.
type NoiseUnit struct {
	// Envelope points; at most three. X is in milliseconds, Y in percent.
	Enves []EnvPoint
	// Panning from -100 (left) to 100 (right).
	Pan int8
	// The base waveform.
	Main NoiseOscillator
	// Modulates the frequency of Main.
	Freq NoiseOscillator
	// Modulates the volume of Main.
	Volu NoiseOscillator
	// Which of the optional fields were present in the file. Written back
	// verbatim on serialization.
	ioFlags uint32
}

// NoiseData is a voice generated by the PTN noise designer.
type NoiseData struct {
	// Number of samples at the native 44100 Hz rate.
	SmpNum44k uint32
	// At most four.
	Units []NoiseUnit
}

const (
	noiseBasicFrequency = 100
	noiseSmpNum         = NativeSampleRate / noiseBasicFrequency
	noiseSmpNumRand     = NativeSampleRate
	samplingTop         = 32767
	noiseKeyTop         = 0x3200

	maxNoiseUnits       = 4
	maxNoiseEnvelopePts = 3
	noiseLimitSmpNum    = 48000 * 10
	noiseLimitEnveX     = 1000 * 10
	noiseLimitEnveY     = 100
	noiseLimitOscFreq   = float32(NativeSampleRate)
	noiseLimitOscVolume = 200.0
	noiseLimitOscOffset = 100.0
)

// fix clamps all design parameters into their valid ranges before rendering.
func (n *NoiseData) fix() {
	if n.SmpNum44k > noiseLimitSmpNum {
		n.SmpNum44k = noiseLimitSmpNum
	}
	for i := range n.Units {
		u := &n.Units[i]
		for e := range u.Enves {
			if u.Enves[e].X > noiseLimitEnveX {
				u.Enves[e].X = noiseLimitEnveX
			}
			if u.Enves[e].Y > noiseLimitEnveY {
				u.Enves[e].Y = noiseLimitEnveY
			}
		}
		if u.Pan < -100 {
			u.Pan = -100
		}
		if u.Pan > 100 {
			u.Pan = 100
		}
		fixNoiseOsc(&u.Main)
		fixNoiseOsc(&u.Freq)
		fixNoiseOsc(&u.Volu)
	}
}

func fixNoiseOsc(o *NoiseOscillator) {
	o.Freq = clampf(o.Freq, 0, noiseLimitOscFreq)
	o.Volume = clampf(o.Volume, 0, noiseLimitOscVolume)
	o.Offset = clampf(o.Offset, 0, noiseLimitOscOffset)
}

func clampf(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// The wave tables shared by all noise voices. Built on first use.
var (
	noiseTablesOnce sync.Once
	noiseTablesVal  [noiseTypeCount][]int16
)

func noiseTables() *[noiseTypeCount][]int16 {
	noiseTablesOnce.Do(buildNoiseTables)
	return &noiseTablesVal
}

func buildNoiseTables() {
	for t := range noiseTablesVal {
		switch NoiseType(t) {
		case NoiseRandom:
			noiseTablesVal[t] = make([]int16, 2*noiseSmpNumRand)
		case NoiseRandom2:
			noiseTablesVal[t] = nil
		default:
			noiseTablesVal[t] = make([]int16, 2*noiseSmpNum)
		}
	}
	overtonesSine := []OscPoint{{1, 128}}
	overtonesSaw2 := make([]OscPoint, 16)
	for i := range overtonesSaw2 {
		overtonesSaw2[i] = OscPoint{uint16(i + 1), 128}
	}
	overtonesRect2 := make([]OscPoint, 8)
	for i := range overtonesRect2 {
		overtonesRect2[i] = OscPoint{uint16(i*2 + 1), 128}
	}
	coordTri := []OscPoint{
		{0, 0}, {noiseSmpNum / 4, 128}, {noiseSmpNum * 3 / 4, -128}, {noiseSmpNum, 0},
	}
	for s := 0; s < noiseSmpNum; s++ {
		v := overtoneAmplitude(overtonesSine, uint16(s), noiseSmpNum, 128)
		noiseTablesVal[NoiseSine][s] = topClamped(v)
		noiseTablesVal[NoiseSaw][s] = int16(samplingTop - 2*samplingTop*s/noiseSmpNum)
		if s < noiseSmpNum/2 {
			noiseTablesVal[NoiseRect][s] = samplingTop
		} else {
			noiseTablesVal[NoiseRect][s] = -samplingTop
		}
		v = overtoneAmplitude(overtonesSaw2, uint16(s), noiseSmpNum, 128)
		noiseTablesVal[NoiseSaw2][s] = topClamped(v)
		v = overtoneAmplitude(overtonesRect2, uint16(s), noiseSmpNum, 128)
		noiseTablesVal[NoiseRect2][s] = topClamped(v)
		v = coordAmplitude(coordTri, uint16(s), noiseSmpNum, noiseSmpNum, 128)
		noiseTablesVal[NoiseTri][s] = topClamped(v)
	}
	var rng noiseRng
	for s := 0; s < noiseSmpNumRand; s++ {
		noiseTablesVal[NoiseRandom][s] = rng.next()
	}
	fillRect(NoiseRect3, 3)
	fillRect(NoiseRect4, 4)
	fillRect(NoiseRect8, 8)
	fillRect(NoiseRect16, 16)
	fillSteps(NoiseSaw3, []int16{samplingTop, 0, -samplingTop})
	fillSteps(NoiseSaw4, []int16{samplingTop, samplingTop / 3, -samplingTop / 3, -samplingTop})
	// The Saw4 table has one extra sample in original PxTone, apparently.
	noiseTablesVal[NoiseSaw4][noiseSmpNum] = -samplingTop
	fillSteps(NoiseSaw6, []int16{
		samplingTop, samplingTop - samplingTop*2/5, samplingTop / 5,
		-samplingTop / 5, -samplingTop + samplingTop*2/5, -samplingTop,
	})
	fillSteps(NoiseSaw8, []int16{
		samplingTop, samplingTop - samplingTop*2/7, samplingTop - samplingTop*4/7, samplingTop / 7,
		-samplingTop / 7, -samplingTop + samplingTop*4/7, -samplingTop + samplingTop*2/7, -samplingTop,
	})
}

func topClamped(v float64) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(v * samplingTop)
}

// fillRect writes a pulse with a 1/n duty cycle.
func fillRect(t NoiseType, n int) {
	tbl := noiseTablesVal[t]
	for s := 0; s < noiseSmpNum/n; s++ {
		tbl[s] = samplingTop
	}
	for s := noiseSmpNum / n; s < noiseSmpNum; s++ {
		tbl[s] = -samplingTop
	}
}

// fillSteps divides one period into equal steps at the given levels.
func fillSteps(t NoiseType, levels []int16) {
	tbl := noiseTablesVal[t]
	n := len(levels)
	for s := 0; s < noiseSmpNum; s++ {
		tbl[s] = levels[s*n/noiseSmpNum]
	}
}

// noiseRng is the byte-swapping generator the random noise table is built
// with. It must match the original player bit for bit or random-based voices
// sound different.
type noiseRng struct {
	buf [2]int32
	set bool
}

func (r *noiseRng) next() int16 {
	if !r.set {
		r.buf = [2]int32{0x4444, 0x8888}
		r.set = true
	}
	w1 := r.buf[0] + r.buf[1]
	w2 := int32(uint32(byte(w1>>8)) | uint32(byte(w1))<<8)
	r.buf[1] = r.buf[0]
	r.buf[0] = w2
	return int16(w2)
}

type noiseRandomKind uint8

const (
	noiseRandomNone noiseRandomKind = iota
	noiseRandomSaw
	noiseRandomRect
)

type noiseOscState struct {
	increment float64
	offset    float64
	volume    float64
	samp      []int16
	reverse   bool
	ranKind   noiseRandomKind
	rdmStart  int32
	rdmMargin int32
	rdmIndex  int
}

func (o *noiseOscState) advance(by float64, randTbl []int16) {
	o.offset += by
	if o.offset > noiseSmpNum {
		o.offset -= noiseSmpNum
		if o.offset >= noiseSmpNum {
			o.offset = 0
		}
		if o.ranKind != noiseRandomNone {
			o.rdmStart = int32(randTbl[o.rdmIndex])
			o.rdmIndex++
			if o.rdmIndex >= noiseSmpNumRand {
				o.rdmIndex = 0
			}
			o.rdmMargin = int32(randTbl[o.rdmIndex]) - o.rdmStart
		}
	}
}

// value reads the oscillator's current amplitude including its volume scale.
func (o *noiseOscState) value() float64 {
	var work float64
	switch o.ranKind {
	case noiseRandomNone:
		off := int32(o.offset)
		if off >= 0 && int(off) < len(o.samp) {
			work = float64(o.samp[off])
		}
	case noiseRandomSaw:
		if o.offset >= 0 {
			work = float64(o.rdmStart + o.rdmMargin*int32(o.offset)/noiseSmpNum)
		}
	case noiseRandomRect:
		if o.offset >= 0 {
			work = float64(o.rdmStart)
		}
	}
	if o.reverse {
		work = -work
	}
	return work * o.volume
}

type noiseEnvePt struct {
	smp int32
	mag float64
}

type noiseUnitState struct {
	pan           [2]float64
	enveIndex     int
	enveMagStart  float64
	enveMagMargin float64
	enveCount     int32
	enves         []noiseEnvePt
	main          noiseOscState
	freq          noiseOscState
	volu          noiseOscState
}

func setNoiseOsc(to *noiseOscState, from *NoiseOscillator, tables *[noiseTypeCount][]int16) {
	switch from.Type {
	case NoiseRandom:
		to.ranKind = noiseRandomSaw
	case NoiseRandom2:
		to.ranKind = noiseRandomRect
	default:
		to.ranKind = noiseRandomNone
	}
	to.increment = float64(from.Freq) / noiseBasicFrequency
	if to.ranKind == noiseRandomNone {
		to.offset = noiseSmpNum * float64(from.Offset/100)
	} else {
		to.offset = 0
	}
	to.volume = float64(from.Volume / 100)
	to.samp = tables[from.Type]
	to.reverse = from.Invert
	to.rdmStart = 0
	to.rdmIndex = int(noiseSmpNumRand * float64(from.Offset/100))
	to.rdmMargin = int32(tables[NoiseRandom][to.rdmIndex])
}

func buildNoiseUnit(unit *noiseUnitState, design *NoiseUnit, tables *[noiseTypeCount][]int16) {
	switch {
	case design.Pan < 0:
		unit.pan = [2]float64{1, (100 + float64(design.Pan)) / 100}
	case design.Pan > 0:
		unit.pan = [2]float64{(100 - float64(design.Pan)) / 100, 1}
	default:
		unit.pan = [2]float64{1, 1}
	}
	unit.enves = make([]noiseEnvePt, len(design.Enves))
	for e, pt := range design.Enves {
		unit.enves[e] = noiseEnvePt{
			smp: NativeSampleRate * int32(pt.X) / 1000,
			mag: float64(pt.Y) / 100,
		}
	}
	unit.enveIndex = 0
	unit.enveMagStart = 0
	unit.enveMagMargin = 0
	unit.enveCount = 0
	for unit.enveIndex < len(unit.enves) {
		unit.enveMagMargin = unit.enves[unit.enveIndex].mag - unit.enveMagStart
		if unit.enves[unit.enveIndex].smp != 0 {
			break
		}
		unit.enveMagStart = unit.enves[unit.enveIndex].mag
		unit.enveIndex++
	}
	setNoiseOsc(&unit.main, &design.Main, tables)
	setNoiseOsc(&unit.freq, &design.Freq, tables)
	setNoiseOsc(&unit.volu, &design.Volu, tables)
}

func advanceNoiseUnit(unit *noiseUnitState, randTbl []int16) {
	var fre float64
	switch unit.freq.ranKind {
	case noiseRandomNone:
		off := int(unit.freq.offset)
		if off >= 0 && off < len(unit.freq.samp) {
			fre = float64(noiseKeyTop * int32(unit.freq.samp[off]) / samplingTop)
		}
	case noiseRandomSaw:
		fre = float64(unit.freq.rdmStart + unit.freq.rdmMargin*int32(unit.freq.offset)/noiseSmpNum)
	case noiseRandomRect:
		fre = float64(unit.freq.rdmStart)
	}
	if unit.freq.reverse {
		fre = -fre
	}
	fre *= unit.freq.volume
	unit.main.advance(unit.main.increment*float64(pulseFreq(int32(fre))), randTbl)
	unit.freq.advance(unit.freq.increment, randTbl)
	unit.volu.advance(unit.volu.increment, randTbl)

	if unit.enveIndex < len(unit.enves) {
		unit.enveCount++
		if unit.enveCount >= unit.enves[unit.enveIndex].smp {
			unit.enveCount = 0
			unit.enveMagStart = unit.enves[unit.enveIndex].mag
			unit.enveMagMargin = 0
			unit.enveIndex++
			for unit.enveIndex < len(unit.enves) {
				unit.enveMagMargin = unit.enves[unit.enveIndex].mag - unit.enveMagStart
				if unit.enves[unit.enveIndex].smp != 0 {
					break
				}
				unit.enveMagStart = unit.enves[unit.enveIndex].mag
				unit.enveIndex++
			}
		}
	}
}

func noiseUnitSample(unit *noiseUnitState, channel int) float64 {
	work := unit.main.value()
	vol := unit.volu.value()
	work = work * (vol + samplingTop) / (samplingTop * 2)
	work *= unit.pan[channel]
	if unit.enveIndex < len(unit.enves) {
		work *= unit.enveMagStart + unit.enveMagMargin*float64(unit.enveCount)/float64(unit.enves[unit.enveIndex].smp)
	} else {
		work *= unit.enveMagStart
	}
	return work
}

// renderNoise runs the noise designer and materializes the result as a
// stereo sample buffer at the native rate.
func renderNoise(noise *NoiseData, tables *[noiseTypeCount][]int16) voiceSample {
	noise.fix()
	units := make([]noiseUnitState, len(noise.Units))
	for i := range units {
		buildNoiseUnit(&units[i], &noise.Units[i], tables)
	}
	smpNum := noise.SmpNum44k
	buf := make([]int16, int(smpNum)*2)
	randTbl := tables[NoiseRandom]
	for s := uint32(0); s < smpNum; s++ {
		for c := 0; c < 2; c++ {
			var store float64
			for i := range units {
				store += noiseUnitSample(&units[i], c)
			}
			v := int32(store)
			if v > samplingTop {
				v = samplingTop
			}
			if v < -samplingTop {
				v = -samplingTop
			}
			buf[int(s)*2+c] = int16(v)
		}
		for i := range units {
			advanceNoiseUnit(&units[i], randTbl)
		}
	}
	return voiceSample{numSamples: smpNum, buf: buf}
}
