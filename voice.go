package ptcow

import "sync"

// VoiceFlags are attributes a voice can have.
type VoiceFlags uint32

const (
	// VoiceWaveLoop keeps looping the voice samples instead of playing them once.
	VoiceWaveLoop VoiceFlags = 1 << iota
	// VoiceSmooth tapers the last milliseconds of a note to avoid clicks.
	VoiceSmooth
	// VoiceBeatFit stretches the voice so one playthrough lasts a beat.
	VoiceBeatFit
)

// VoiceData is the source a voice generates its waveform from: *PCMData,
// *WaveData, *NoiseData or *OggVData.
type VoiceData interface {
	voiceData()
}

func (*PCMData) voiceData()   {}
func (*WaveData) voiceData()  {}
func (*NoiseData) voiceData() {}
func (*OggVData) voiceData()  {}

// WaveData describes an oscillator voice.
type WaveData struct {
	// Overtone selects harmonic synthesis. Otherwise the points are
	// piecewise-linear coordinates on a grid of Resolution steps.
	Overtone   bool
	Points     []OscPoint
	Resolution uint16
}

// VoiceUnit is the data required to generate and play one channel of a voice.
type VoiceUnit struct {
	// The native key of the voice. If set wrong the voice sounds off key.
	BasicKey Key
	// Volume the samples are generated with, for wave voices.
	Volume int16
	// Panning used when generating wave voice samples.
	Pan    int16
	Tuning float32
	Flags  VoiceFlags
	Data   VoiceData
	// Envelope applied over a note's duration. May be empty.
	Envelope EnvelopeSrc
}

// Voice is an instrument: audio data that gives units something to play.
// A voice has one or two voice units (PTV wave voices can carry two).
type Voice struct {
	Name  string
	Units []VoiceUnit

	prepOnce sync.Once
	samples  []voiceSample
	prepErr  error
}

// voiceSample is a voice unit decoded to its canonical playable form:
// 16-bit interleaved stereo at NativeSampleRate.
type voiceSample struct {
	numSamples uint32
	buf        []int16
}

// prepare decodes every voice unit into playable samples. The work happens
// once per voice; concurrent render sessions share the result. Vorbis
// decoding is the expensive case, which is why this is deferred until a
// render session needs the voice.
func (v *Voice) prepare() ([]voiceSample, error) {
	v.prepOnce.Do(func() {
		tables := noiseTables()
		v.samples = make([]voiceSample, len(v.Units))
		for i := range v.Units {
			vu := &v.Units[i]
			switch data := vu.Data.(type) {
			case *PCMData:
				num, buf := data.toConverted(NativeSampleRate)
				v.samples[i] = voiceSample{numSamples: num, buf: buf}
			case *WaveData:
				v.samples[i] = renderWave(data, vu.Volume, vu.Pan)
			case *NoiseData:
				v.samples[i] = renderNoise(data, tables)
			case *OggVData:
				pcm, err := data.decode()
				if err != nil {
					v.prepErr = err
					return
				}
				num, buf := pcm.toConverted(NativeSampleRate)
				v.samples[i] = voiceSample{numSamples: num, buf: buf}
			}
		}
	})
	return v.samples, v.prepErr
}

func voiceFromUnit(vu VoiceUnit) *Voice {
	return &Voice{Units: []VoiceUnit{vu}}
}
