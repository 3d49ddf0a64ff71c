package ptcow

// waveSampleNum is how many samples a wave voice is materialized to. The
// waveform is periodic, so one period at this resolution is enough.
const waveSampleNum = 400

// renderWave materializes an oscillator voice into stereo samples, applying
// the voice's own volume and panning.
func renderWave(wave *WaveData, volume, pan int16) voiceSample {
	panVolume := [2]int16{64, 64}
	if pan > 64 {
		panVolume[0] = 128 - pan
	}
	if pan < 64 {
		panVolume[1] = pan
	}
	buf := make([]int16, waveSampleNum*2)
	for s := uint16(0); s < waveSampleNum; s++ {
		var osc float64
		if wave.Overtone {
			osc = overtoneAmplitude(wave.Points, s, waveSampleNum, volume)
		} else {
			osc = coordAmplitude(wave.Points, s, waveSampleNum, wave.Resolution, volume)
		}
		for c := 0; c < 2; c++ {
			work := osc * float64(panVolume[c]) / 64
			if work > 1 {
				work = 1
			}
			if work < -1 {
				work = -1
			}
			buf[int(s)*2+c] = int16(work * 32767)
		}
	}
	return voiceSample{numSamples: waveSampleNum, buf: buf}
}
