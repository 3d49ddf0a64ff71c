package ptcow

import (
	"bytes"
	"fmt"
	"math"

	"github.com/jfreymuth/oggvorbis"
)

// OggVData is a Vorbis-compressed voice. The compressed stream is kept as-is
// and decoded to PCM once, on first playback.
type OggVData struct {
	// Channel count as declared by the song file.
	Channels int32
	// Sample rate as declared by the song file.
	SampleRate int32
	// Per-channel sample frame count as declared by the song file.
	SampleNum int32
	// The raw Ogg/Vorbis stream.
	Raw []byte
}

// decode fully decodes the Vorbis stream into PCM. The decoded frame count
// must match the declared one; a stereo stream that decodes short would
// otherwise play at the wrong length, so a mismatch is a decode error rather
// than a silent truncation or pad.
func (d *OggVData) decode() (*PCMData, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(d.Raw))
	if err != nil {
		return nil, fmt.Errorf("vorbis decode: %w", err)
	}
	return d.toPCM(samples, format.Channels, format.SampleRate)
}

// toPCM checks the decoded stream against the declared layout and converts
// the float samples to 16-bit PCM.
func (d *OggVData) toPCM(samples []float32, channels, sampleRate int) (*PCMData, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("vorbis channel count %d not supported", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("vorbis sample rate %d not usable", sampleRate)
	}
	frames := len(samples) / channels
	if d.SampleNum > 0 && frames != int(d.SampleNum) {
		return nil, fmt.Errorf("vorbis decoded %d frames, song declares %d", frames, d.SampleNum)
	}
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.RoundToEven(float64(s) * 32768)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		}
		if v < math.MinInt16 {
			v = math.MinInt16
		}
		u := uint16(int16(v))
		data[i*2] = byte(u)
		data[i*2+1] = byte(u >> 8)
	}
	return &PCMData{
		Channels:      uint8(channels),
		BitsPerSample: 16,
		SampleRate:    uint32(sampleRate),
		SampleNum:     uint32(frames),
		Data:          data,
	}, nil
}
