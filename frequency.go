package ptcow

// Key-to-frequency lookup covering 16 octaves with 12 keys each and 16
// frequency steps per key. Index zero is the lowest octave.
const (
	octaveNum       = 16
	keysPerOctave   = 12
	freqStepsPerKey = 16
	freqTableSize   = octaveNum * keysPerOctave * freqStepsPerKey
)

var pulseFreqTable = generatePulseFreqTable()

func generatePulseFreqTable() [freqTableSize]float32 {
	octTable := [octaveNum]float64{
		0.00390625, 0.0078125, 0.015625, 0.03125, 0.0625, 0.125, 0.25, 0.5,
		1, 2, 4, 8, 16, 32, 64, 128,
	}
	octStep := divideOctaveRate(keysPerOctave * freqStepsPerKey)
	var table [freqTableSize]float32
	for i := range table {
		oct := octTable[i/(keysPerOctave*freqStepsPerKey)]
		for j := 0; j < i%(keysPerOctave*freqStepsPerKey); j++ {
			oct *= octStep
		}
		table[i] = float32(oct)
	}
	return table
}

// pulseFreq looks up the frequency multiplier for a key given in 1/256ths of
// a semitone, biased so the table covers negative keys.
func pulseFreq(key int32) float32 {
	i := (int(key) + 0x6000) * freqStepsPerKey / 0x100
	if i < 0 {
		i = 0
	}
	if i >= freqTableSize {
		i = freqTableSize - 1
	}
	return pulseFreqTable[i]
}

// pulseFreq2 looks up the frequency multiplier for a raw 16ths-of-a-step key.
func pulseFreq2(key int32) float32 {
	i := int(key) >> 4
	if i < 0 {
		i = 0
	}
	if i >= freqTableSize {
		i = freqTableSize - 1
	}
	return pulseFreqTable[i]
}

// divideOctaveRate finds the number x such that x^divi is just under 2, by
// refining one decimal digit at a time. This reproduces the frequency step
// the original player computes.
func divideOctaveRate(divi int) float64 {
	parameter := 1.0
	for i := 0; i < 17; i++ {
		add := 1.0
		for j := 0; j < i; j++ {
			add *= 0.1
		}
		j := 0
		for ; j < 10; j++ {
			work := add*float64(j) + parameter
			result := 1.0
			k := 0
			for ; k < divi; k++ {
				result *= work
				if result >= 2.0 {
					break
				}
			}
			if k != divi {
				break
			}
		}
		parameter += add * (float64(j) - 1.0)
	}
	return parameter
}
