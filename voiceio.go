package ptcow

import "math"

// Serialized layouts of the voice chunks. Each chunk starts with its payload
// size; matePTV backpatches two size fields after writing, matching what the
// original editor produces.

const (
	ptvMagic     = "PTVOICE-"
	ptvLatestVer = 20060111

	ptnMagic     = "PTNOISE-"
	ptnLatestVer = 20120418

	ptvDataFlagWave     = 0x1
	ptvDataFlagEnvelope = 0x2

	noiseFlagEnvelope = 0x04
	noiseFlagPan      = 0x08
	noiseFlagOscMain  = 0x10
	noiseFlagOscFreq  = 0x20
	noiseFlagOscVolu  = 0x40
	noiseFlagCovered  = noiseFlagEnvelope | noiseFlagPan |
		noiseFlagOscMain | noiseFlagOscFreq | noiseFlagOscVolu
)

func readMatePCM(r *reader) (*Voice, error) {
	if _, err := r.u32("size"); err != nil {
		return nil, err
	}
	if _, err := r.u16("x3x unit no"); err != nil {
		return nil, err
	}
	basicKey, err := r.u16("basic key")
	if err != nil {
		return nil, err
	}
	flags, err := r.u32("voice flags")
	if err != nil {
		return nil, err
	}
	// The channel count is a byte wide but padded to two bytes on the wire.
	ch, err := r.u16("channels")
	if err != nil {
		return nil, err
	}
	ch &= 0xff
	bps, err := r.u16("bits per sample")
	if err != nil {
		return nil, err
	}
	sps, err := r.u32("sample rate")
	if err != nil {
		return nil, err
	}
	tuning, err := r.f32("tuning")
	if err != nil {
		return nil, err
	}
	dataSize, err := r.u32("data size")
	if err != nil {
		return nil, err
	}
	if bps != 8 && bps != 16 {
		return nil, r.malformed("bits per sample")
	}
	if ch != 1 && ch != 2 {
		return nil, r.malformed("channels")
	}
	if sps == 0 {
		return nil, r.malformed("sample rate")
	}
	data, err := r.bytes(int(dataSize), "pcm data")
	if err != nil {
		return nil, err
	}
	pcm := &PCMData{
		Channels:      uint8(ch),
		BitsPerSample: bps,
		SampleRate:    sps,
		SampleNum:     dataSize / uint32(bps/8*ch),
		Data:          append([]byte(nil), data...),
	}
	return voiceFromUnit(VoiceUnit{
		BasicKey: Key(basicKey),
		Tuning:   tuning,
		Flags:    VoiceFlags(flags),
		Data:     pcm,
	}), nil
}

func (v *Voice) writeMatePCM(out []byte, data *PCMData) []byte {
	out = append(out, tagMatePCM...)
	const headerSize = 24
	out = appendU32(out, headerSize+uint32(len(data.Data)))
	vu := &v.Units[0]
	out = appendU16(out, 0) // x3x unit no
	out = appendU16(out, uint16(vu.BasicKey))
	out = appendU32(out, uint32(vu.Flags))
	out = appendU16(out, uint16(data.Channels))
	out = appendU16(out, data.BitsPerSample)
	out = appendU32(out, data.SampleRate)
	out = appendF32(out, vu.Tuning)
	out = appendU32(out, uint32(len(data.Data)))
	return append(out, data.Data...)
}

func readMatePTN(r *reader) (*Voice, error) {
	if _, err := r.u32("size"); err != nil {
		return nil, err
	}
	if _, err := r.u16("x3x unit no"); err != nil {
		return nil, err
	}
	basicKey, err := r.u16("basic key")
	if err != nil {
		return nil, err
	}
	flags, err := r.u32("voice flags")
	if err != nil {
		return nil, err
	}
	tuning, err := r.f32("tuning")
	if err != nil {
		return nil, err
	}
	rrr, err := r.i32("reserved")
	if err != nil {
		return nil, err
	}
	if rrr != 0 && rrr != 1 {
		return nil, r.malformed("reserved")
	}
	noise := &NoiseData{}
	if err := noise.read(r); err != nil {
		return nil, err
	}
	return voiceFromUnit(VoiceUnit{
		BasicKey: Key(basicKey),
		Tuning:   tuning,
		Flags:    VoiceFlags(flags),
		Data:     noise,
	}), nil
}

func (v *Voice) writeMatePTN(out []byte, data *NoiseData) []byte {
	out = append(out, tagMatePTN...)
	sizePos := len(out)
	out = appendU32(out, 0) // backpatched below
	vu := &v.Units[0]
	out = appendU16(out, 0) // x3x unit no
	out = appendU16(out, uint16(vu.BasicKey))
	out = appendU32(out, uint32(vu.Flags))
	out = appendF32(out, vu.Tuning)
	out = appendU32(out, 1) // reserved
	out = data.write(out)
	patchU32(out, sizePos, uint32(len(out)-(sizePos+4)))
	return out
}

func readMatePTV(r *reader) (*Voice, error) {
	if _, err := r.u32("size"); err != nil {
		return nil, err
	}
	// IoPtv header: x3x unit no, reserved, x3x tuning, blob size. All of it
	// is ignored; the blob is self-delimiting.
	if _, err := r.bytes(12, "ptv header"); err != nil {
		return nil, err
	}
	return ptvRead(r)
}

func (v *Voice) writeMatePTV(out []byte) []byte {
	out = append(out, tagMatePTV...)
	sizePos := len(out)
	out = appendU32(out, 0) // backpatched below
	out = appendU16(out, 0) // x3x unit no
	out = appendU16(out, 0) // reserved
	out = appendF32(out, 0) // x3x tuning
	out = appendU32(out, 0) // blob size, backpatched below
	out = v.ptvWrite(out)
	written := uint32(len(out) - (sizePos + 4))
	patchU32(out, sizePos, written)
	patchU32(out, sizePos+12, written-12)
	return out
}

func readMateOGGV(r *reader) (*Voice, error) {
	if _, err := r.u32("size"); err != nil {
		return nil, err
	}
	if _, err := r.u16("xxx"); err != nil {
		return nil, err
	}
	basicKey, err := r.u16("basic key")
	if err != nil {
		return nil, err
	}
	flags, err := r.u32("voice flags")
	if err != nil {
		return nil, err
	}
	tuning, err := r.f32("tuning")
	if err != nil {
		return nil, err
	}
	ch, err := r.i32("channels")
	if err != nil {
		return nil, err
	}
	sps, err := r.i32("sample rate")
	if err != nil {
		return nil, err
	}
	smpNum, err := r.i32("sample num")
	if err != nil {
		return nil, err
	}
	rawSize, err := r.u32("ogg size")
	if err != nil {
		return nil, err
	}
	if rawSize == 0 {
		return nil, r.malformed("ogg size")
	}
	raw, err := r.bytes(int(rawSize), "ogg data")
	if err != nil {
		return nil, err
	}
	oggv := &OggVData{
		Channels:   ch,
		SampleRate: sps,
		SampleNum:  smpNum,
		Raw:        append([]byte(nil), raw...),
	}
	return voiceFromUnit(VoiceUnit{
		BasicKey: Key(basicKey),
		Tuning:   tuning,
		Flags:    VoiceFlags(flags),
		Data:     oggv,
	}), nil
}

func (v *Voice) writeMateOGGV(out []byte, data *OggVData) []byte {
	out = append(out, tagMateOGGV...)
	const headerSize = 12 + 4*4
	out = appendU32(out, headerSize+uint32(len(data.Raw)))
	vu := &v.Units[0]
	out = appendU16(out, 0) // xxx
	out = appendU16(out, uint16(vu.BasicKey))
	out = appendU32(out, uint32(vu.Flags))
	out = appendF32(out, vu.Tuning)
	out = appendU32(out, uint32(data.Channels))
	out = appendU32(out, uint32(data.SampleRate))
	out = appendU32(out, uint32(data.SampleNum))
	out = appendU32(out, uint32(len(data.Raw)))
	return append(out, data.Raw...)
}

// VoiceFromPTV reads a standalone .ptvoice file.
func VoiceFromPTV(data []byte) (*Voice, error) {
	r := &reader{data: data, tag: "PTVOICE"}
	return ptvRead(r)
}

// PTVBytes serializes the voice as standalone .ptvoice data. Every voice
// unit must be wave based.
func (v *Voice) PTVBytes() ([]byte, error) {
	for i := range v.Units {
		if _, ok := v.Units[i].Data.(*WaveData); !ok {
			return nil, validationErrorf("voice unit %d is not wave based", i)
		}
	}
	return v.ptvWrite(nil), nil
}

func ptvRead(r *reader) (*Voice, error) {
	magic, err := r.bytes(8, "magic")
	if err != nil {
		return nil, err
	}
	if string(magic) != ptvMagic {
		return nil, r.malformed("magic")
	}
	ver, err := r.u32("version")
	if err != nil {
		return nil, err
	}
	if ver > ptvLatestVer {
		return nil, &DecodeError{Offset: r.pos, Tag: r.tag, Field: "version", Err: ErrFormatNewer}
	}
	if _, err := r.i32("total"); err != nil {
		return nil, err
	}
	if _, err := r.varint("x3x basic"); err != nil {
		return nil, err
	}
	work1, err := r.varint("work1")
	if err != nil {
		return nil, err
	}
	work2, err := r.varint("work2")
	if err != nil {
		return nil, err
	}
	if work1 != 0 || work2 != 0 {
		return nil, r.malformed("work")
	}
	num, err := r.varint("unit count")
	if err != nil {
		return nil, err
	}
	if num != 1 && num != 2 {
		return nil, r.malformed("unit count")
	}
	voice := &Voice{}
	for i := uint32(0); i < num; i++ {
		var vu VoiceUnit
		basicKey, err := r.varint("basic key")
		if err != nil {
			return nil, err
		}
		vu.BasicKey = Key(basicKey)
		volume, err := r.varint("volume")
		if err != nil {
			return nil, err
		}
		vu.Volume = int16(volume)
		pan, err := r.varint("pan")
		if err != nil {
			return nil, err
		}
		vu.Pan = int16(pan)
		tuning, err := r.varint("tuning")
		if err != nil {
			return nil, err
		}
		vu.Tuning = math.Float32frombits(tuning)
		flags, err := r.varint("flags")
		if err != nil {
			return nil, err
		}
		vu.Flags = VoiceFlags(flags)
		dataFlags, err := r.varint("data flags")
		if err != nil {
			return nil, err
		}
		if dataFlags&ptvDataFlagWave != 0 {
			wave, err := readWaveData(r)
			if err != nil {
				return nil, err
			}
			vu.Data = wave
		}
		if dataFlags&ptvDataFlagEnvelope != 0 {
			if err := readEnvelopeSrc(r, &vu.Envelope); err != nil {
				return nil, err
			}
		}
		voice.Units = append(voice.Units, vu)
	}
	return voice, nil
}

func (v *Voice) ptvWrite(out []byte) []byte {
	out = append(out, ptvMagic...)
	out = appendU32(out, ptvLatestVer)
	totalPos := len(out)
	out = appendU32(out, 0)    // backpatched below
	out = appendVarint(out, 0) // x3x basic
	out = appendVarint(out, 0) // work1
	out = appendVarint(out, 0) // work2
	out = appendVarint(out, uint32(len(v.Units)))
	for i := range v.Units {
		vu := &v.Units[i]
		out = appendVarint(out, uint32(vu.BasicKey))
		out = appendVarint(out, uint32(uint16(vu.Volume)))
		out = appendVarint(out, uint32(uint16(vu.Pan)))
		out = appendVarint(out, math.Float32bits(vu.Tuning))
		out = appendVarint(out, uint32(vu.Flags))
		dataFlags := uint32(ptvDataFlagWave)
		if len(vu.Envelope.Points) != 0 {
			dataFlags |= ptvDataFlagEnvelope
		}
		out = appendVarint(out, dataFlags)
		out = writeWaveData(out, vu.Data.(*WaveData))
		if len(vu.Envelope.Points) != 0 {
			out = writeEnvelopeSrc(out, &vu.Envelope)
		}
	}
	patchU32(out, totalPos, uint32(len(out)-(totalPos+4)))
	return out
}

func readWaveData(r *reader) (*WaveData, error) {
	kind, err := r.varint("wave kind")
	if err != nil {
		return nil, err
	}
	switch kind {
	case 0:
		num, err := r.varint("point count")
		if err != nil {
			return nil, err
		}
		reso, err := r.varint("resolution")
		if err != nil {
			return nil, err
		}
		points := make([]OscPoint, num)
		for i := range points {
			x, err := r.u8("point x")
			if err != nil {
				return nil, err
			}
			y, err := r.i8("point y")
			if err != nil {
				return nil, err
			}
			points[i] = OscPoint{X: uint16(x), Y: int16(y)}
		}
		return &WaveData{Points: points, Resolution: uint16(reso)}, nil
	case 1:
		num, err := r.varint("point count")
		if err != nil {
			return nil, err
		}
		points := make([]OscPoint, num)
		for i := range points {
			x, err := r.varint("point x")
			if err != nil {
				return nil, err
			}
			y, err := r.varint("point y")
			if err != nil {
				return nil, err
			}
			if x > 0xffff {
				return nil, r.malformed("point x")
			}
			sy := int32(y)
			if sy < -0x8000 || sy > 0x7fff {
				return nil, r.malformed("point y")
			}
			points[i] = OscPoint{X: uint16(x), Y: int16(sy)}
		}
		return &WaveData{Overtone: true, Points: points}, nil
	default:
		return nil, r.malformed("wave kind")
	}
}

func writeWaveData(out []byte, wave *WaveData) []byte {
	if wave.Overtone {
		out = appendVarint(out, 1)
		out = appendVarint(out, uint32(len(wave.Points)))
		for _, pt := range wave.Points {
			out = appendVarint(out, uint32(pt.X))
			out = appendVarint(out, uint32(int32(pt.Y)))
		}
		return out
	}
	out = appendVarint(out, 0)
	out = appendVarint(out, uint32(len(wave.Points)))
	out = appendVarint(out, uint32(wave.Resolution))
	for _, pt := range wave.Points {
		out = append(out, byte(pt.X), byte(int8(pt.Y)))
	}
	return out
}

func readEnvelopeSrc(r *reader, env *EnvelopeSrc) error {
	spp, err := r.varint("seconds per point")
	if err != nil {
		return err
	}
	env.SecondsPerPoint = spp
	head, err := r.varint("envelope head")
	if err != nil {
		return err
	}
	body, err := r.varint("envelope body")
	if err != nil {
		return err
	}
	if body != 0 {
		return r.malformed("envelope body")
	}
	tail, err := r.varint("envelope tail")
	if err != nil {
		return err
	}
	if tail != 1 {
		return r.malformed("envelope tail")
	}
	env.Points = make([]EnvPoint, head+tail)
	for i := range env.Points {
		x, err := r.varint("envelope x")
		if err != nil {
			return err
		}
		y, err := r.varint("envelope y")
		if err != nil {
			return err
		}
		if x > 0xffff || y > 0xff {
			return r.malformed("envelope point")
		}
		env.Points[i] = EnvPoint{X: uint16(x), Y: uint8(y)}
	}
	return nil
}

func writeEnvelopeSrc(out []byte, env *EnvelopeSrc) []byte {
	out = appendVarint(out, env.SecondsPerPoint)
	out = appendVarint(out, uint32(len(env.Points)-1))
	out = appendVarint(out, 0) // body
	out = appendVarint(out, 1) // tail
	for _, pt := range env.Points {
		out = appendVarint(out, uint32(pt.X))
		out = appendVarint(out, uint32(pt.Y))
	}
	return out
}

// read parses the PTNOISE blob the noise designer saves.
func (n *NoiseData) read(r *reader) error {
	magic, err := r.bytes(8, "magic")
	if err != nil {
		return err
	}
	if string(magic) != ptnMagic {
		return r.malformed("magic")
	}
	ver, err := r.u32("version")
	if err != nil {
		return err
	}
	if ver > ptnLatestVer {
		return &DecodeError{Offset: r.pos, Tag: r.tag, Field: "version", Err: ErrFormatNewer}
	}
	if n.SmpNum44k, err = r.varint("sample num"); err != nil {
		return err
	}
	unitNum, err := r.u8("unit count")
	if err != nil {
		return err
	}
	if unitNum > maxNoiseUnits {
		return r.malformed("unit count")
	}
	n.Units = make([]NoiseUnit, unitNum)
	for i := range n.Units {
		u := &n.Units[i]
		flags, err := r.varint("unit flags")
		if err != nil {
			return err
		}
		if flags&^uint32(noiseFlagCovered) != 0 {
			return r.malformed("unit flags")
		}
		u.ioFlags = flags
		if flags&noiseFlagEnvelope != 0 {
			enveNum, err := r.varint("envelope count")
			if err != nil {
				return err
			}
			if enveNum > maxNoiseEnvelopePts {
				return r.malformed("envelope count")
			}
			u.Enves = make([]EnvPoint, enveNum)
			for e := range u.Enves {
				x, err := r.varint("envelope x")
				if err != nil {
					return err
				}
				y, err := r.varint("envelope y")
				if err != nil {
					return err
				}
				if x > 0xffff || y > 0xff {
					return r.malformed("envelope point")
				}
				u.Enves[e] = EnvPoint{X: uint16(x), Y: uint8(y)}
			}
		}
		if flags&noiseFlagPan != 0 {
			if u.Pan, err = r.i8("pan"); err != nil {
				return err
			}
		}
		if flags&noiseFlagOscMain != 0 {
			if err := readNoiseOscillator(r, &u.Main); err != nil {
				return err
			}
		}
		if flags&noiseFlagOscFreq != 0 {
			if err := readNoiseOscillator(r, &u.Freq); err != nil {
				return err
			}
		}
		if flags&noiseFlagOscVolu != 0 {
			if err := readNoiseOscillator(r, &u.Volu); err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *NoiseData) write(out []byte) []byte {
	out = append(out, ptnMagic...)
	out = appendU32(out, ptnLatestVer)
	out = appendVarint(out, n.SmpNum44k)
	out = append(out, byte(len(n.Units)))
	for i := range n.Units {
		u := &n.Units[i]
		flags := u.ioFlags
		if flags == 0 {
			// unit built through the API rather than read from a file
			flags = noiseFlagOscMain | noiseFlagOscFreq | noiseFlagOscVolu
			if len(u.Enves) > 0 {
				flags |= noiseFlagEnvelope
			}
			if u.Pan != 0 {
				flags |= noiseFlagPan
			}
		}
		out = appendVarint(out, flags)
		if flags&noiseFlagEnvelope != 0 {
			out = appendVarint(out, uint32(len(u.Enves)))
			for _, pt := range u.Enves {
				out = appendVarint(out, uint32(pt.X))
				out = appendVarint(out, uint32(pt.Y))
			}
		}
		if flags&noiseFlagPan != 0 {
			out = append(out, byte(u.Pan))
		}
		if flags&noiseFlagOscMain != 0 {
			out = writeNoiseOscillator(out, &u.Main)
		}
		if flags&noiseFlagOscFreq != 0 {
			out = writeNoiseOscillator(out, &u.Freq)
		}
		if flags&noiseFlagOscVolu != 0 {
			out = writeNoiseOscillator(out, &u.Volu)
		}
	}
	return out
}

// Noise oscillator wave types are stored one-based; 0 marks "none" and is
// rejected.
func readNoiseOscillator(r *reader, osc *NoiseOscillator) error {
	waveType, err := r.varint("wave type")
	if err != nil {
		return err
	}
	if waveType == 0 || waveType > uint32(noiseTypeCount) {
		return r.malformed("wave type")
	}
	osc.Type = NoiseType(waveType - 1)
	invert, err := r.varint("invert")
	if err != nil {
		return err
	}
	osc.Invert = invert != 0
	freq, err := r.varint("freq")
	if err != nil {
		return err
	}
	osc.Freq = float32(freq) / 10
	volume, err := r.varint("volume")
	if err != nil {
		return err
	}
	osc.Volume = float32(volume) / 10
	offset, err := r.varint("offset")
	if err != nil {
		return err
	}
	osc.Offset = float32(offset) / 10
	return nil
}

func writeNoiseOscillator(out []byte, osc *NoiseOscillator) []byte {
	out = appendVarint(out, uint32(osc.Type)+1)
	var invert uint32
	if osc.Invert {
		invert = 1
	}
	out = appendVarint(out, invert)
	out = appendVarint(out, uint32(osc.Freq*10))
	out = appendVarint(out, uint32(osc.Volume*10))
	return appendVarint(out, uint32(osc.Offset*10))
}

func patchU32(out []byte, pos int, v uint32) {
	out[pos] = byte(v)
	out[pos+1] = byte(v >> 8)
	out[pos+2] = byte(v >> 16)
	out[pos+3] = byte(v >> 24)
}
