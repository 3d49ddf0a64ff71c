package ptcow

import (
	"encoding/binary"
	"log"
)

// PCMData is a sampled voice: raw PCM at its source channel count, bit depth
// and sample rate.
type PCMData struct {
	// 1 or 2.
	Channels uint8
	// 8 or 16.
	BitsPerSample uint16
	// Sample rate of the source data. Vorbis sources can exceed 16 bits.
	SampleRate uint32
	// Number of sample frames. Not the length of Data: a frame spans
	// Channels samples of BitsPerSample/8 bytes each.
	SampleNum uint32
	// Raw little-endian sample bytes.
	Data []byte
}

// toConverted normalizes the data to 16-bit interleaved stereo at newRate and
// returns the frame count along with the samples.
func (p *PCMData) toConverted(newRate uint32) (uint32, []int16) {
	if p.SampleRate == 0 {
		log.Printf("pcm: zero sample rate, voice stays silent")
		return 0, nil
	}
	buf := p.to16Bit()
	buf = toStereo(buf, p.Channels)
	if p.SampleRate == newRate {
		return p.SampleNum, buf
	}
	return resampleStereo(buf, p.SampleNum, p.SampleRate, newRate)
}

func (p *PCMData) to16Bit() []int16 {
	n := int(p.SampleNum) * int(p.Channels)
	out := make([]int16, n)
	if p.BitsPerSample == 8 {
		for i := 0; i < n && i < len(p.Data); i++ {
			out[i] = (int16(p.Data[i]) - 128) * 0x100
		}
		return out
	}
	for i := 0; i < n && (i+1)*2 <= len(p.Data); i++ {
		out[i] = int16(binary.LittleEndian.Uint16(p.Data[i*2:]))
	}
	return out
}

func toStereo(buf []int16, channels uint8) []int16 {
	if channels == 2 {
		return buf
	}
	out := make([]int16, len(buf)*2)
	for i, v := range buf {
		out[i*2] = v
		out[i*2+1] = v
	}
	return out
}

// resampleStereo does the nearest-neighbour rate conversion of the original
// player, including its head/tail padding frame on each side.
func resampleStereo(src []int16, sampleNum, srcRate, dstRate uint32) (uint32, []int16) {
	const frameBytes = 4 // 2 channels of 2 bytes
	headSize := scaleCeil(frameBytes, dstRate, srcRate)
	bodySize := scaleCeil(uint64(sampleNum)*frameBytes, dstRate, srcRate)
	tailSize := scaleCeil(frameBytes, dstRate, srcRate)
	workSize := headSize + bodySize + tailSize
	frames := workSize / frameBytes
	out := make([]int16, frames*2)
	for i := uint64(0); i < frames; i++ {
		idx := i * uint64(srcRate) / uint64(dstRate)
		if int(idx*2+1) >= len(src) {
			log.Printf("pcm resample: source index %d out of bounds", idx)
			break
		}
		out[i*2] = src[idx*2]
		out[i*2+1] = src[idx*2+1]
	}
	return uint32(bodySize / frameBytes), out
}

func scaleCeil(v uint64, mul, div uint32) uint64 {
	return (v*uint64(mul) + uint64(div) - 1) / uint64(div)
}
