package ptcow

// StartPos is a playback start position, given in one of three units.
type StartPos struct {
	kind     startPosKind
	meas     Meas
	sample   uint32
	fraction float32
}

type startPosKind uint8

const (
	startPosMeas startPosKind = iota
	startPosSample
	startPosFraction
)

// StartAtMeas starts playback at a measure.
func StartAtMeas(meas Meas) StartPos {
	return StartPos{kind: startPosMeas, meas: meas}
}

// StartAtSample starts playback at an output sample position.
func StartAtSample(sample uint32) StartPos {
	return StartPos{kind: startPosSample, sample: sample}
}

// StartAtFraction starts playback at a fraction of the song's total length,
// 0 meaning the beginning and 1 the end.
func StartAtFraction(fraction float32) StartPos {
	return StartPos{kind: startPosFraction, fraction: fraction}
}

// MooPlan configures a render session. The zero value plays the whole song
// once from the beginning.
type MooPlan struct {
	Start StartPos
	// End measure; nil plays until the song's own end.
	MeasEnd *Meas
	// Measure to repeat from when looping; nil uses the song's loop point.
	MeasRepeat *Meas
	// Start over from the repeat point instead of ending.
	Loop bool
}

// Moo renders a song to interleaved stereo 16 bit PCM. It mutates the play
// state living in the song's units, so a song supports one active session at
// a time.
type Moo struct {
	// With Advance false, Render neither consumes events nor moves the song
	// position; sounding notes keep playing. Useful for pausing.
	Advance bool

	song           *Song
	voices         []preparedVoice
	voiceErrs      []error
	outSampleRate  int
	samplesPerTick float32
	smpStride      float32
	smpSmooth      int32
	loop           bool
	smpStart       uint32
	smpCount       uint32
	smpEnd         uint32
	smpRepeat      uint32
	timePanIndex   int
	evtIdx         int
	end            bool
}

// NewMoo prepares a render session at the given output sample rate. Voices
// that fail to decode are reported by VoiceErrors and render silence; they
// do not fail the session.
func NewMoo(song *Song, outSampleRate int, plan MooPlan) (*Moo, error) {
	if outSampleRate <= 0 {
		return nil, validationErrorf("output sample rate %d must be positive", outSampleRate)
	}
	if err := song.Validate(); err != nil {
		return nil, err
	}
	m := &Moo{
		Advance:       true,
		song:          song,
		outSampleRate: outSampleRate,
	}
	m.prepareVoices()
	for _, d := range song.Delays {
		d.rebuild(song.Master.Timing, outSampleRate)
	}
	for _, o := range song.Overdrives {
		o.rebuild()
	}
	m.prepare(plan)
	return m, nil
}

func (m *Moo) prepareVoices() {
	m.voices = make([]preparedVoice, len(m.song.Voices))
	for i, v := range m.song.Voices {
		samples, err := v.prepare()
		if err != nil {
			m.voiceErrs = append(m.voiceErrs, &VoiceError{Index: i, Err: err})
			m.voices[i] = preparedVoice{}
			continue
		}
		pv := preparedVoice{
			units:   v.Units,
			samples: samples,
			envs:    make([]preparedEnv, len(v.Units)),
		}
		for j := range v.Units {
			table, release := v.Units[j].Envelope.prepare(m.outSampleRate)
			pv.envs[j] = preparedEnv{table: table, release: release}
		}
		m.voices[i] = pv
	}
}

func (m *Moo) prepare(plan MooPlan) {
	master := &m.song.Master
	measEnd := master.EndMeas()
	if plan.MeasEnd != nil {
		measEnd = *plan.MeasEnd
	}
	measRepeat := master.Loop.Repeat
	if plan.MeasRepeat != nil {
		measRepeat = *plan.MeasRepeat
	}
	m.loop = plan.Loop
	m.samplesPerTick = master.Timing.SamplesPerTick(m.outSampleRate)
	m.smpStride = NativeSampleRate / float32(m.outSampleRate)
	m.timePanIndex = 0
	m.smpEnd = measToSample(measEnd, m.samplesPerTick, master.Timing)
	m.smpRepeat = measToSample(measRepeat, m.samplesPerTick, master.Timing)
	switch plan.Start.kind {
	case startPosMeas:
		m.smpStart = measToSample(plan.Start.meas, m.samplesPerTick, master.Timing)
	case startPosSample:
		m.smpStart = plan.Start.sample
	case startPosFraction:
		m.smpStart = uint32(float32(m.totalSamples()) * plan.Start.fraction)
	}
	m.smpCount = m.smpStart
	m.smpSmooth = int32(m.outSampleRate / 250)
	m.evtIdx = 0
	m.resetUnits()
}

// totalSamples is the length of the whole song in output samples.
func (m *Moo) totalSamples() uint32 {
	t := m.song.Master.Timing
	if t.BPM == 0 {
		return 0
	}
	beats := m.song.Master.MeasNum * uint32(t.BeatsPerMeas)
	return uint32(float64(m.outSampleRate) * 60 * float64(beats) / float64(t.BPM))
}

func (m *Moo) resetUnits() {
	for _, u := range m.song.Units {
		u.toneInit()
		u.resetVoice(m.voices, 0, m.samplesPerTick, m.song.Master.Timing)
	}
}

// VoiceErrors returns the voices that could not be decoded. Their units
// render silence.
func (m *Moo) VoiceErrors() []error { return m.voiceErrs }

// CurrentTick is the tick playback is at.
func (m *Moo) CurrentTick() Tick {
	return Tick(float32(m.smpCount) / m.samplesPerTick)
}

// SampleCount is the output sample position playback is at.
func (m *Moo) SampleCount() uint32 { return m.smpCount }

// SampleEnd is the output sample position the song ends at.
func (m *Moo) SampleEnd() uint32 { return m.smpEnd }

// Seek moves playback to an output sample position. The event state catches
// up on the next Render call.
func (m *Moo) Seek(sample uint32) {
	m.smpCount = sample
	m.evtIdx = 0
	m.end = false
}

// Render fills buf with interleaved stereo samples. It returns the number of
// int16 values written and whether the session can produce more. A song
// without loop reports false once the end measure is reached; the samples
// written before that are still valid.
func (m *Moo) Render(buf []int16) (int, bool) {
	if m.end {
		return 0, false
	}
	n := 0
	for ; n+1 < len(buf); n += 2 {
		var frame [MaxChannels]int16
		if !m.nextSample(&frame) {
			m.end = true
			break
		}
		buf[n] = frame[0]
		buf[n+1] = frame[1]
	}
	return n, !m.end
}

func (m *Moo) nextSample(out *[MaxChannels]int16) bool {
	if m.smpCount >= m.smpEnd {
		if !m.loop {
			return false
		}
		m.smpCount = m.smpRepeat
		m.evtIdx = 0
		m.resetUnits()
	}
	units := m.song.Units
	for _, u := range units {
		u.toneEnvelope(m.voices)
	}
	if m.Advance {
		clock := m.CurrentTick()
		events := m.song.Events.Events
		for m.evtIdx < len(events) && events[m.evtIdx].Tick <= clock {
			if !m.doEvent(&events[m.evtIdx], clock) {
				break
			}
			m.evtIdx++
		}
	}
	for _, u := range units {
		u.toneSample(m.timePanIndex, m.smpSmooth, m.voices)
	}
	for ch := 0; ch < MaxChannels; ch++ {
		var groups groupSamples
		for _, u := range units {
			if !u.Mute {
				u.toneSupple(&groups, ch, m.timePanIndex)
			}
		}
		for _, o := range m.song.Overdrives {
			o.toneSupple(&groups)
		}
		for _, d := range m.song.Delays {
			d.toneSupple(ch, &groups)
		}
		var sum int32
		for _, g := range groups {
			sum += g
		}
		out[ch] = clampInt16(sum)
	}
	if m.Advance {
		m.smpCount++
	}
	m.timePanIndex = (m.timePanIndex + 1) & (len(panTimeBuf{}) - 1)
	for _, u := range units {
		keyNow := u.toneIncrementKey()
		u.toneIncrementSample(pulseFreq2(keyNow)*m.smpStride, m.voices)
	}
	for _, d := range m.song.Delays {
		d.toneIncrement()
	}
	return true
}

// doEvent applies one event; false stops event processing for this sample.
func (m *Moo) doEvent(e *Event, clock Tick) bool {
	if int(e.Unit) >= len(m.song.Units) {
		return false
	}
	unit := m.song.Units[e.Unit]
	switch e.Kind {
	case EventNull:
		return false
	case EventOn:
		m.doOnEvent(e, unit, clock)
	case EventKey:
		unit.toneKey(e.Value)
	case EventPanVolume:
		unit.tonePanVolume(uint8(e.Value))
	case EventPanTime:
		unit.tonePanTime(PanTime(e.Value), m.outSampleRate)
	case EventVelocity:
		unit.velocity = int16(e.Value)
	case EventVolume:
		unit.volume = int16(e.Value)
	case EventPortament:
		unit.portaDest = int32(tickToSample(Tick(e.Value), m.samplesPerTick))
	case EventSetVoice:
		unit.resetVoice(m.voices, uint8(e.Value), m.samplesPerTick, m.song.Master.Timing)
	case EventSetGroup:
		unit.group = uint8(e.Value)
	case EventTuning:
		unit.tuning = e.Tuning()
	}
	return true
}

func (m *Moo) doOnEvent(e *Event, unit *Unit, clock Tick) {
	signedClock := int32(clock)
	duration := e.Value
	evtTick := int32(e.Tick)
	onCount := int32(float32(evtTick+duration-signedClock) * m.samplesPerTick)
	if onCount <= 0 {
		unit.toneZeroLives()
		return
	}
	unit.toneKeyOn()
	if int(unit.voiceIdx) >= len(m.voices) {
		return
	}
	voice := &m.voices[unit.voiceIdx]
	events := m.song.Events.Events
	for i := range voice.samples {
		if i >= MaxChannels {
			break
		}
		tone := &unit.tones[i]
		env := &voice.envs[i]
		if env.release != 0 {
			maxLife1 := int32(float32(duration-(signedClock-evtTick))*m.samplesPerTick + float32(env.release))
			// A later note on the same unit cuts this one short, but only if
			// it starts before the release would have finished.
			c := evtTick + duration + int32(tone.envReleaseClock)
			maxLife2 := int32(m.smpEnd) - int32(float32(signedClock)*m.samplesPerTick)
			for j := m.evtIdx + 1; j < len(events); j++ {
				next := &events[j]
				if int32(next.Tick) > c {
					break
				}
				if next.Unit == e.Unit && next.Kind == EventOn {
					maxLife2 = int32(float32(int32(next.Tick)-signedClock) * m.samplesPerTick)
					break
				}
			}
			if maxLife1 < maxLife2 {
				tone.lifeCount = maxLife1
			} else {
				tone.lifeCount = maxLife2
			}
		} else {
			tone.lifeCount = int32(float32(duration-(signedClock-evtTick)) * m.samplesPerTick)
		}
		if tone.lifeCount > 0 {
			tone.onCount = onCount
			tone.smpPos = 0
			tone.envPos = 0
			if len(env.table) == 0 {
				tone.envVolume = 128
				tone.envStart = 128
			} else {
				tone.envVolume = 0
				tone.envStart = 0
			}
		}
	}
}

func clampInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
