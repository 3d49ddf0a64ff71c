package ptcow

// MaxChannels is the number of output channels. PxTone is always stereo.
const MaxChannels = 2

// GroupCount is how many sample groups units can render into. Effects apply
// per group.
const GroupCount = 7

type groupSamples [GroupCount]int32

// panTimeBuf stores a unit's samples before the pan time effect shifts the
// channels against each other. Its length must stay a power of two.
type panTimeBuf [64]int32

// PanTime offsets the left and right channel sampling positions against each
// other, giving the stereo image more depth. 64 means no offset; values above
// delay the left channel, values below the right.
type PanTime uint8

// ToLROffsets converts the pan time to raw per-channel sample offsets at the
// given output rate.
func (p PanTime) ToLROffsets(outSampleRate int) [2]uint8 {
	if p >= 64 {
		return [2]uint8{calcPanTime(uint8(p-64), outSampleRate), 0}
	}
	return [2]uint8{0, calcPanTime(uint8(64-p), outSampleRate)}
}

// PanTimeFromLROffsets is the inverse of ToLROffsets.
func PanTimeFromLROffsets(offs [2]uint8, outSampleRate int) PanTime {
	switch {
	case offs[0] > 0 && offs[1] == 0:
		return PanTime(64 + invCalcPanTime(offs[0], outSampleRate))
	case offs[0] == 0 && offs[1] > 0:
		return PanTime(64 - invCalcPanTime(offs[1], outSampleRate))
	default:
		return 64
	}
}

func calcPanTime(offset uint8, outSampleRate int) uint8 {
	if offset > 63 {
		offset = 63
	}
	v := uint32(offset) * NativeSampleRate / uint32(outSampleRate)
	// With very low output rates the offset can exceed a byte; fall back to
	// no offset rather than wrapping.
	if v > 255 {
		return 0
	}
	return uint8(v)
}

func invCalcPanTime(val uint8, outSampleRate int) uint8 {
	if val == 0 {
		return 0
	}
	v := uint32(val) * uint32(outSampleRate) / NativeSampleRate
	if v > 63 {
		v = 63
	}
	return uint8(v)
}

// voiceTone tracks the play state of one channel of a voice inside a unit.
type voiceTone struct {
	// Position in the voice's sample buffer.
	smpPos float64
	// How much smpPos advances per output sample, before key and tuning.
	offsetFreq float32
	// Current envelope volume.
	envVolume uint8
	// The tone plays as long as this is positive.
	lifeCount int32
	// The envelope position advances as long as this is positive.
	onCount int32
	// Envelope volume the release phase started from.
	envStart uint8
	// Position in the prepared envelope table.
	envPos int32
	// Release length in ticks.
	envReleaseClock uint32
}

// preparedEnv is a voice unit's envelope flattened for one output rate.
type preparedEnv struct {
	table   []uint8
	release uint32
}

// preparedVoice is a voice readied for rendering: decoded samples plus
// envelope tables at the session's output rate.
type preparedVoice struct {
	units   []VoiceUnit
	samples []voiceSample
	envs    []preparedEnv
}

// Unit is one channel of a song. A unit needs a voice to make sound; songs
// assign one with an EventSetVoice event.
//
// During rendering each unit's output lands in its sample group, effects
// apply per group, and the groups are mixed into the final output.
type Unit struct {
	// The name of the unit.
	Name string
	// A muted unit stays silent but keeps its play state moving.
	Mute bool

	keyNow    Key
	keyStart  Key
	keyMargin Key
	portaPos  int32
	portaDest int32
	// The left and right channels are each multiplied by these.
	panVols     [MaxChannels]int16
	panTimeOffs [MaxChannels]uint8
	panTimeBufs [MaxChannels]panTimeBuf
	// Volume and velocity both play into the output volume. Normally 0 to
	// 128, but songs can move outside that range.
	volume   int16
	velocity int16
	group    uint8
	tuning   float32
	voiceIdx uint8
	tones    [MaxChannels]voiceTone
}

func (u *Unit) toneInit() {
	u.group = 0
	u.velocity = DefaultVelocity
	u.volume = DefaultVolume
	u.tuning = DefaultTuning
	u.portaDest = 0
	u.portaPos = 0
	for ch := 0; ch < MaxChannels; ch++ {
		u.panVols[ch] = 64
		u.panTimeOffs[ch] = 0
	}
}

func (u *Unit) toneEnvelope(voices []preparedVoice) {
	if int(u.voiceIdx) >= len(voices) {
		return
	}
	voice := &voices[u.voiceIdx]
	for i := range voice.envs {
		if i >= MaxChannels {
			break
		}
		tone := &u.tones[i]
		env := &voice.envs[i]
		if tone.lifeCount <= 0 || len(env.table) == 0 {
			continue
		}
		if tone.onCount > 0 {
			if int(tone.envPos) < len(env.table) {
				tone.envVolume = env.table[tone.envPos]
				tone.envPos++
			}
		} else if env.release > 0 {
			tone.envVolume = uint8(int32(tone.envStart) - int32(tone.envStart)*tone.envPos/int32(env.release))
			tone.envPos++
		} else {
			tone.envVolume = 0
		}
	}
}

func (u *Unit) toneKeyOn() {
	u.keyNow = u.keyStart + u.keyMargin
	u.keyStart = u.keyNow
	u.keyMargin = 0
}

func (u *Unit) toneZeroLives() {
	for ch := range u.tones {
		u.tones[ch].lifeCount = 0
	}
}

func (u *Unit) toneKey(key Key) {
	u.keyStart = u.keyNow
	u.keyMargin = key - u.keyStart
	u.portaPos = 0
}

func (u *Unit) tonePanVolume(vol uint8) {
	u.panVols[0] = 64
	u.panVols[1] = 64
	if vol >= 64 {
		u.panVols[0] = 128 - int16(vol)
	} else {
		u.panVols[1] = int16(vol)
	}
}

func (u *Unit) tonePanTime(p PanTime, outSampleRate int) {
	u.panTimeOffs = p.ToLROffsets(outSampleRate)
}

// toneSupple reads the unit's pan-time shifted sample for one channel and
// adds it to the unit's group.
func (u *Unit) toneSupple(groups *groupSamples, ch int, timePanIndex int) {
	idx := (timePanIndex - int(u.panTimeOffs[ch])) & (len(panTimeBuf{}) - 1)
	groups[u.group] += u.panTimeBufs[ch][idx]
}

// toneIncrementKey moves the key one sample along a portamento slide, if one
// is active, and returns the key to play at.
func (u *Unit) toneIncrementKey() Key {
	if u.portaDest != 0 && u.keyMargin != 0 {
		if u.portaPos < u.portaDest {
			u.portaPos++
			u.keyNow = Key(float64(u.keyStart) + float64(u.keyMargin)*float64(u.portaPos)/float64(u.portaDest))
		} else {
			u.keyNow = u.keyStart + u.keyMargin
			u.keyStart = u.keyNow
			u.keyMargin = 0
		}
	} else {
		u.keyNow = u.keyStart + u.keyMargin
	}
	return u.keyNow
}

func (u *Unit) toneIncrementSample(freq float32, voices []preparedVoice) {
	if int(u.voiceIdx) >= len(voices) {
		return
	}
	voice := &voices[u.voiceIdx]
	for i := range voice.units {
		if i >= MaxChannels || i >= len(voice.samples) {
			break
		}
		tone := &u.tones[i]
		sample := &voice.samples[i]
		if tone.lifeCount > 0 {
			tone.lifeCount--
		}
		if tone.lifeCount <= 0 {
			continue
		}
		tone.onCount--
		tone.smpPos += float64(tone.offsetFreq * u.tuning * freq)
		if tone.smpPos >= float64(sample.numSamples) {
			if voice.units[i].Flags&VoiceWaveLoop != 0 {
				tone.smpPos -= float64(sample.numSamples)
				if tone.smpPos >= float64(sample.numSamples) {
					tone.smpPos = 0
				}
			} else {
				tone.lifeCount = 0
			}
		}
		if tone.onCount == 0 && len(voice.envs[i].table) != 0 {
			tone.envStart = tone.envVolume
			tone.envPos = 0
		}
	}
}

func (u *Unit) setVoice(idx uint8) {
	u.voiceIdx = idx
	u.keyNow = DefaultKey
	u.keyMargin = 0
	u.keyStart = DefaultKey
}

// resetVoice points the unit at a voice and resets the per-channel tones.
// An out of bounds index falls back to voice 0.
func (u *Unit) resetVoice(voices []preparedVoice, idx uint8, samplesPerTick float32, timing Timing) {
	if int(idx) >= len(voices) {
		idx = 0
	}
	u.setVoice(idx)
	if len(voices) == 0 {
		return
	}
	voice := &voices[idx]
	for i := range voice.units {
		if i >= MaxChannels {
			break
		}
		vu := &voice.units[i]
		tone := &u.tones[i]
		tone.lifeCount = 0
		tone.onCount = 0
		tone.smpPos = 0
		tone.envReleaseClock = uint32(float32(voice.envs[i].release) / samplesPerTick)
		if vu.Flags&VoiceBeatFit != 0 {
			tone.offsetFreq = float32(voice.samples[i].numSamples) * timing.BPM /
				(NativeSampleRate * 60 * vu.Tuning)
		} else {
			tone.offsetFreq = pulseFreq(DefaultBasicKey-vu.BasicKey) * vu.Tuning
		}
	}
}

// toneSample renders one sample of the unit for both channels into the
// pan-time buffers.
func (u *Unit) toneSample(timePanIndex int, smoothSmp int32, voices []preparedVoice) {
	if int(u.voiceIdx) >= len(voices) {
		return
	}
	voice := &voices[u.voiceIdx]
	for ch := 0; ch < MaxChannels; ch++ {
		var sum int32
		for i := range voice.samples {
			if i >= MaxChannels {
				break
			}
			tone := &u.tones[i]
			sample := &voice.samples[i]
			if len(sample.buf) == 0 {
				continue
			}
			var work int32
			if tone.lifeCount > 0 {
				pos := int(tone.smpPos)*2 + ch
				// Low output rates can push the position past the buffer;
				// treat that as silence.
				if pos >= 0 && pos < len(sample.buf) {
					work = int32(sample.buf[pos])
				}
				work = work * int32(u.velocity) / 128
				work = work * int32(u.volume) / 128
				work = work * int32(u.panVols[ch]) / 64
				if len(voice.envs[i].table) != 0 {
					work = work * int32(tone.envVolume) / 128
				}
				if voice.units[i].Flags&VoiceSmooth != 0 && tone.lifeCount < smoothSmp {
					work = work * tone.lifeCount / smoothSmp
				}
			}
			sum += work
		}
		u.panTimeBufs[ch][timePanIndex] = sum
	}
}
