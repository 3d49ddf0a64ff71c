package ptcow

// Master holds the timing data and loop points of a song.
type Master struct {
	Timing Timing
	Loop   LoopPoints
	// Number of measures in the song. Kept up to date by RecalculateLength.
	MeasNum Meas
}

func defaultMaster() Master {
	return Master{Timing: defaultTiming(), MeasNum: 1}
}

// LastTick returns the tick of the explicit loop end, or 0 when there is none.
func (m *Master) LastTick() Tick {
	if m.Loop.Last == 0 {
		return 0
	}
	return m.Timing.MeasToTick(m.Loop.Last)
}

// EndMeas returns the measure playback naturally stops at.
func (m *Master) EndMeas() Meas {
	if m.Loop.Last != 0 {
		return m.Loop.Last
	}
	return m.MeasNum
}

// adjustMeasNum grows the measure count to cover tick and drops loop points
// that fall outside the song.
func (m *Master) adjustMeasNum(tick Tick) {
	if n := m.Timing.TickToMeas(tick); n > m.MeasNum {
		m.MeasNum = n
	}
	if m.Loop.Repeat >= m.MeasNum {
		m.Loop.Repeat = 0
	}
	if m.Loop.Last > m.MeasNum {
		m.Loop.Last = m.MeasNum
	}
}

// masterChunkSize is the serialized size of the MasterV5 payload:
// u16 ticks per beat, u8 beats per meas, f32 bpm, u32 repeat tick,
// u32 last tick.
const masterChunkSize = 15

func readMaster(r *reader) (Master, error) {
	size, err := r.u32("size")
	if err != nil {
		return Master{}, err
	}
	if size != masterChunkSize {
		return Master{}, r.malformed("size")
	}
	var t Timing
	if t.TicksPerBeat, err = r.u16("ticks per beat"); err != nil {
		return Master{}, err
	}
	if t.BeatsPerMeas, err = r.u8("beats per meas"); err != nil {
		return Master{}, err
	}
	if t.BPM, err = r.f32("bpm"); err != nil {
		return Master{}, err
	}
	repeatTick, err := r.u32("repeat tick")
	if err != nil {
		return Master{}, err
	}
	lastTick, err := r.u32("last tick")
	if err != nil {
		return Master{}, err
	}
	loop, err := LoopPointsFromTicks(repeatTick, lastTick, t)
	if err != nil {
		return Master{}, err
	}
	return Master{Timing: t, Loop: loop, MeasNum: 1}, nil
}

func (m *Master) write(out []byte) []byte {
	out = append(out, tagMasterV5...)
	out = appendU32(out, masterChunkSize)
	out = appendU16(out, m.Timing.TicksPerBeat)
	out = append(out, m.Timing.BeatsPerMeas)
	out = appendF32(out, m.Timing.BPM)
	out = appendU32(out, m.Timing.MeasToTick(m.Loop.Repeat))
	out = appendU32(out, m.LastTick())
	return out
}
