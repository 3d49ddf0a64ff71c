package ptcow

import "fmt"

type (
	// SongInfo is a human readable summary of a song, suitable for
	// serializing to yaml.
	SongInfo struct {
		Name         string  `yaml:",omitempty"`
		Comment      string  `yaml:",omitempty"`
		Format       string  `yaml:"format"`
		BPM          float32 `yaml:"bpm"`
		TicksPerBeat uint16  `yaml:"ticksPerBeat"`
		BeatsPerMeas uint8   `yaml:"beatsPerMeas"`
		MeasNum      uint32  `yaml:"measNum"`
		RepeatMeas   uint32  `yaml:"repeatMeas"`
		LastMeas     uint32  `yaml:"lastMeas"`
		EventCount   int     `yaml:"eventCount"`
		Units        []UnitInfo
		Voices       []VoiceInfo
		Delays       []DelayInfo     `yaml:",omitempty"`
		Overdrives   []OverdriveInfo `yaml:",omitempty"`
	}

	UnitInfo struct {
		Name string `yaml:",omitempty"`
	}

	VoiceInfo struct {
		Name string `yaml:",omitempty"`
		// Type of the voice data: pcm, wave, noise or vorbis.
		Type string `yaml:"type"`
	}

	DelayInfo struct {
		Unit  string
		Group uint8
		Rate  uint8
		Freq  float32
	}

	OverdriveInfo struct {
		Group uint8
		Cut   float32
		Amp   float32
	}
)

// Info summarizes the song.
func (s *Song) Info() SongInfo {
	info := SongInfo{
		Name:         s.Name,
		Comment:      s.Comment,
		Format:       s.Kind.String(),
		BPM:          s.Master.Timing.BPM,
		TicksPerBeat: s.Master.Timing.TicksPerBeat,
		BeatsPerMeas: s.Master.Timing.BeatsPerMeas,
		MeasNum:      s.Master.MeasNum,
		RepeatMeas:   s.Master.Loop.Repeat,
		LastMeas:     s.Master.Loop.Last,
		EventCount:   len(s.Events.Events),
	}
	for _, u := range s.Units {
		info.Units = append(info.Units, UnitInfo{Name: u.Name})
	}
	for _, v := range s.Voices {
		vi := VoiceInfo{Name: v.Name}
		if len(v.Units) > 0 {
			switch v.Units[0].Data.(type) {
			case *PCMData:
				vi.Type = "pcm"
			case *WaveData:
				vi.Type = "wave"
			case *NoiseData:
				vi.Type = "noise"
			case *OggVData:
				vi.Type = "vorbis"
			}
		}
		info.Voices = append(info.Voices, vi)
	}
	for _, d := range s.Delays {
		info.Delays = append(info.Delays, DelayInfo{
			Unit:  d.Unit.String(),
			Group: d.Group,
			Rate:  d.Rate,
			Freq:  d.Freq,
		})
	}
	for _, o := range s.Overdrives {
		info.Overdrives = append(info.Overdrives, OverdriveInfo{
			Group: o.Group,
			Cut:   o.CutPercent,
			Amp:   o.AmpMul,
		})
	}
	return info
}

func (k FormatKind) String() string {
	switch k {
	case FormatCollage:
		return "collage"
	case FormatTune:
		return "tune"
	}
	return fmt.Sprintf("FormatKind(%d)", uint8(k))
}

func (u DelayUnit) String() string {
	switch u {
	case DelayUnitBeat:
		return "beat"
	case DelayUnitMeas:
		return "meas"
	case DelayUnitSecond:
		return "second"
	}
	return fmt.Sprintf("DelayUnit(%d)", uint16(u))
}
