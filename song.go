package ptcow

import (
	"fmt"

	"golang.org/x/text/encoding/japanese"
)

// Chunk tags of the V5 format. Each chunk is an 8 byte tag, a 32 bit payload
// size and the payload. pxtoneND ends the file.
const (
	tagAntiOPER = "antiOPER"
	tagNumUNIT  = "num UNIT"
	tagMasterV5 = "MasterV5"
	tagEventV5  = "Event V5"
	tagMatePCM  = "matePCM "
	tagMatePTV  = "matePTV "
	tagMatePTN  = "matePTN "
	tagMateOGGV = "mateOGGV"
	tagEffeDELA = "effeDELA"
	tagEffeOVER = "effeOVER"
	tagTextNAME = "textNAME"
	tagTextCOMM = "textCOMM"
	tagAssiUNIT = "assiUNIT"
	tagAssiWOIC = "assiWOIC"
	tagPxtoneND = "pxtoneND"
)

// Chunk tags of format revisions before V5. Files carrying these are rejected
// at the version header already; seeing one mid-stream is still an error.
var oldTags = map[string]bool{
	"END=====": true,
	"EVENT===": true,
	"matePCM=": true,
	"PROJECT=": true,
	"UNIT====": true,
	"pxtnUNIT": true,
	"evenMAST": true,
	"evenUNIT": true,
}

const (
	tagSize     = 8
	versionSize = 16

	// MaxUnits is the maximum number of units a song can have.
	MaxUnits = 50
	// MaxVoices is the maximum number of voices a song can have.
	MaxVoices = 100
	// MaxDelays is the maximum number of delay effects a song can have.
	MaxDelays = 4
	// MaxOverdrives is the maximum number of overdrive effects a song can
	// have.
	MaxOverdrives = 2

	maxUnitNameLen  = 16
	maxVoiceNameLen = 16
)

// FormatKind says which flavor of the format a file uses. The flavors only
// differ in their version string.
type FormatKind uint8

const (
	// FormatCollage is a project file (.ptcop).
	FormatCollage FormatKind = iota
	// FormatTune is a finished tune (.pttune).
	FormatTune
)

var versionStrings = map[FormatKind]string{
	FormatCollage: "PTCOLLAGE-071119",
	FormatTune:    "PTTUNE--20071119",
}

// Version strings of revisions V1 through V4.
var oldVersionStrings = map[string]bool{
	"PTCOLLAGE-050227": true,
	"PTCOLLAGE-050608": true,
	"PTTUNE--20050608": true,
	"PTCOLLAGE-060115": true,
	"PTTUNE--20060115": true,
	"PTCOLLAGE-060930": true,
	"PTTUNE--20060930": true,
}

// Song is a full PxTone Collage project: timing, the event timeline, voices,
// units and effects.
type Song struct {
	// Name of the song.
	Name string
	// Comment, a short description of the song.
	Comment string
	// Timing data and loop points.
	Master Master
	// The playback event timeline.
	Events EventList
	// The voices (instruments) units play.
	Voices []*Voice
	// The units (channels) of the song.
	Units []*Unit
	// Delay effects, at most four.
	Delays []*Delay
	// Overdrive effects, at most two.
	Overdrives []*Overdrive
	// Which format flavor the song was read from and writes back as.
	Kind FormatKind
	// Version of the editor the song was saved with.
	ExeVer uint16

	dummy uint16
}

// NewSong returns an empty song with default timing.
func NewSong() *Song {
	return &Song{Master: defaultMaster()}
}

// ReadSong parses a V5 PxTone Collage file. Files from format revisions
// before V5 return ErrUnsupportedVersion.
func ReadSong(data []byte) (*Song, error) {
	r := &reader{data: data}
	song := NewSong()
	if err := song.readVersion(r); err != nil {
		return nil, err
	}
	if err := song.readChunks(r); err != nil {
		return nil, err
	}
	song.RecalculateLength()
	if err := song.Validate(); err != nil {
		return nil, err
	}
	return song, nil
}

func (s *Song) readVersion(r *reader) error {
	version, err := r.bytes(versionSize, "version")
	if err != nil {
		return err
	}
	switch {
	case string(version) == versionStrings[FormatCollage]:
		s.Kind = FormatCollage
	case string(version) == versionStrings[FormatTune]:
		s.Kind = FormatTune
	case oldVersionStrings[string(version)]:
		return &DecodeError{Offset: 0, Field: "version", Err: ErrUnsupportedVersion}
	default:
		return &DecodeError{Offset: 0, Field: "version", Err: ErrMalformed}
	}
	if s.ExeVer, err = r.u16("exe version"); err != nil {
		return err
	}
	if s.dummy, err = r.u16("dummy"); err != nil {
		return err
	}
	return nil
}

func (s *Song) readChunks(r *reader) error {
	for {
		tagBytes, err := r.bytes(tagSize, "tag")
		if err != nil {
			return err
		}
		tag := string(tagBytes)
		r.tag = tag
		switch tag {
		case tagPxtoneND:
			return nil
		case tagAntiOPER:
			return &DecodeError{Offset: r.pos, Tag: tag, Err: ErrAntiOperation}
		case tagMasterV5:
			if s.Master, err = readMaster(r); err != nil {
				return err
			}
		case tagEventV5:
			if s.Events, err = readEvents(r); err != nil {
				return err
			}
		case tagNumUNIT:
			num, err := readUnitNum(r)
			if err != nil {
				return err
			}
			for i := 0; i < num; i++ {
				s.Units = append(s.Units, &Unit{})
			}
		case tagMatePCM, tagMatePTV, tagMatePTN, tagMateOGGV:
			voice, err := readVoiceChunk(r, tag)
			if err != nil {
				return err
			}
			if len(s.Voices) >= MaxVoices {
				return r.malformed("voice count")
			}
			s.Voices = append(s.Voices, voice)
		case tagEffeDELA:
			delay, err := readDelay(r)
			if err != nil {
				return err
			}
			if len(s.Delays) >= MaxDelays {
				return r.malformed("delay count")
			}
			s.Delays = append(s.Delays, &delay)
		case tagEffeOVER:
			ovr, err := readOverdrive(r)
			if err != nil {
				return err
			}
			if len(s.Overdrives) >= MaxOverdrives {
				return r.malformed("overdrive count")
			}
			s.Overdrives = append(s.Overdrives, &ovr)
		case tagTextNAME:
			if s.Name, err = readText(r); err != nil {
				return err
			}
		case tagTextCOMM:
			if s.Comment, err = readText(r); err != nil {
				return err
			}
		case tagAssiUNIT:
			if err := s.readUnitName(r); err != nil {
				return err
			}
		case tagAssiWOIC:
			if err := s.readVoiceName(r); err != nil {
				return err
			}
		default:
			if oldTags[tag] {
				return &DecodeError{Offset: r.pos, Tag: tag, Err: ErrUnsupportedVersion}
			}
			return &DecodeError{Offset: r.pos, Tag: tag, Field: "tag", Err: ErrMalformed}
		}
		r.tag = ""
	}
}

func readVoiceChunk(r *reader, tag string) (*Voice, error) {
	switch tag {
	case tagMatePCM:
		return readMatePCM(r)
	case tagMatePTV:
		return readMatePTV(r)
	case tagMatePTN:
		return readMatePTN(r)
	default:
		return readMateOGGV(r)
	}
}

func readUnitNum(r *reader) (int, error) {
	size, err := r.u32("size")
	if err != nil {
		return 0, err
	}
	if size != 4 {
		return 0, r.malformed("size")
	}
	num, err := r.u16("unit count")
	if err != nil {
		return 0, err
	}
	rrr, err := r.u16("reserved")
	if err != nil {
		return 0, err
	}
	if rrr != 0 {
		return 0, r.malformed("reserved")
	}
	if num > MaxUnits {
		return 0, &DecodeError{Offset: r.pos, Tag: r.tag, Field: "unit count", Err: ErrFormatNewer}
	}
	return int(num), nil
}

func readText(r *reader) (string, error) {
	size, err := r.u32("size")
	if err != nil {
		return "", err
	}
	raw, err := r.bytes(int(size), "text")
	if err != nil {
		return "", err
	}
	return decodeShiftJIS(raw), nil
}

const assiChunkSize = 20

func (s *Song) readUnitName(r *reader) error {
	size, err := r.u32("size")
	if err != nil {
		return err
	}
	if size != assiChunkSize {
		return r.malformed("size")
	}
	idx, err := r.u16("unit index")
	if err != nil {
		return err
	}
	rrr, err := r.u16("reserved")
	if err != nil {
		return err
	}
	if rrr != 0 {
		return r.malformed("reserved")
	}
	name, err := r.bytes(maxUnitNameLen, "name")
	if err != nil {
		return err
	}
	if int(idx) >= len(s.Units) {
		return r.malformed("unit index")
	}
	s.Units[idx].Name = decodeShiftJIS(truncAtNul(name))
	return nil
}

func (s *Song) readVoiceName(r *reader) error {
	size, err := r.u32("size")
	if err != nil {
		return err
	}
	if size != assiChunkSize {
		return r.malformed("size")
	}
	idx, err := r.u16("voice index")
	if err != nil {
		return err
	}
	// The reserved field is not validated here; some files in the wild have
	// it set.
	if _, err := r.u16("reserved"); err != nil {
		return err
	}
	name, err := r.bytes(maxVoiceNameLen, "name")
	if err != nil {
		return err
	}
	if int(idx) >= len(s.Voices) {
		return r.malformed("voice index")
	}
	s.Voices[idx].Name = decodeShiftJIS(truncAtNul(name))
	return nil
}

func truncAtNul(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

// Write serializes the song into the V5 file format.
func (s *Song) Write() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	out := append([]byte(nil), versionStrings[s.Kind]...)
	out = appendU16(out, s.ExeVer)
	out = appendU16(out, s.dummy)
	out = s.Master.write(out)
	out = s.Events.write(out)
	out = writeText(out, tagTextNAME, s.Name)
	out = writeText(out, tagTextCOMM, s.Comment)
	for _, d := range s.Delays {
		out = d.write(out)
	}
	for _, o := range s.Overdrives {
		out = o.write(out)
	}
	for i, v := range s.Voices {
		var err error
		if out, err = writeVoiceChunk(out, v); err != nil {
			return nil, fmt.Errorf("voice %d: %w", i, err)
		}
		if v.Name != "" {
			out = writeAssi(out, tagAssiWOIC, uint16(i), v.Name)
		}
	}
	out = append(out, tagNumUNIT...)
	out = appendU32(out, 4)
	out = appendU16(out, uint16(len(s.Units)))
	out = appendU16(out, 0)
	for i, u := range s.Units {
		if u.Name != "" {
			out = writeAssi(out, tagAssiUNIT, uint16(i), u.Name)
		}
	}
	out = append(out, tagPxtoneND...)
	out = appendU32(out, 0)
	return out, nil
}

func writeVoiceChunk(out []byte, v *Voice) ([]byte, error) {
	if len(v.Units) == 0 {
		return nil, validationErrorf("voice has no units")
	}
	switch data := v.Units[0].Data.(type) {
	case *PCMData:
		return v.writeMatePCM(out, data), nil
	case *NoiseData:
		return v.writeMatePTN(out, data), nil
	case *OggVData:
		return v.writeMateOGGV(out, data), nil
	case *WaveData:
		for i := range v.Units {
			if _, ok := v.Units[i].Data.(*WaveData); !ok {
				return nil, validationErrorf("voice mixes wave and non-wave units")
			}
		}
		return v.writeMatePTV(out), nil
	default:
		return nil, validationErrorf("voice has no data")
	}
}

func writeText(out []byte, tag, text string) []byte {
	if text == "" {
		return out
	}
	out = append(out, tag...)
	encoded := encodeShiftJIS(text)
	out = appendU32(out, uint32(len(encoded)))
	return append(out, encoded...)
}

func writeAssi(out []byte, tag string, idx uint16, name string) []byte {
	out = append(out, tag...)
	out = appendU32(out, assiChunkSize)
	out = appendU16(out, idx)
	out = appendU16(out, 0)
	var buf [maxUnitNameLen]byte
	copy(buf[:], encodeShiftJIS(name))
	return append(out, buf[:]...)
}

func decodeShiftJIS(b []byte) string {
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}

func encodeShiftJIS(s string) []byte {
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return encoded
}

// RecalculateLength updates the measure count to cover all events and the
// loop points. Call it after changing the events or the tick/measure ratio.
func (s *Song) RecalculateLength() {
	last := s.Master.LastTick()
	if max := s.Events.MaxTick(); max > last {
		last = max
	}
	s.Master.adjustMeasNum(last)
}

// Validate checks the semantic consistency of the song: limits, timing and
// event targets.
func (s *Song) Validate() error {
	t := s.Master.Timing
	if t.TicksPerBeat == 0 || t.BeatsPerMeas == 0 || t.BPM <= 0 {
		return validationErrorf("timing must be positive, got %d ticks/beat, %d beats/meas, %g bpm",
			t.TicksPerBeat, t.BeatsPerMeas, t.BPM)
	}
	if len(s.Units) > MaxUnits {
		return validationErrorf("%d units exceed the maximum of %d", len(s.Units), MaxUnits)
	}
	if len(s.Voices) > MaxVoices {
		return validationErrorf("%d voices exceed the maximum of %d", len(s.Voices), MaxVoices)
	}
	if len(s.Delays) > MaxDelays {
		return validationErrorf("%d delays exceed the maximum of %d", len(s.Delays), MaxDelays)
	}
	if len(s.Overdrives) > MaxOverdrives {
		return validationErrorf("%d overdrives exceed the maximum of %d", len(s.Overdrives), MaxOverdrives)
	}
	var prev Tick
	for i, e := range s.Events.Events {
		if e.Tick < prev {
			return validationErrorf("event %d at tick %d breaks the ascending tick order", i, e.Tick)
		}
		prev = e.Tick
		if e.Kind >= eventKindCount {
			return validationErrorf("event %d has unknown kind %d", i, e.Kind)
		}
		if int(e.Unit) >= len(s.Units) {
			return validationErrorf("event %d targets unit %d of %d", i, e.Unit, len(s.Units))
		}
		if e.Kind == EventSetVoice && int(e.Value) >= len(s.Voices) {
			return validationErrorf("event %d selects voice %d of %d", i, e.Value, len(s.Voices))
		}
		if e.Kind == EventSetGroup && (e.Value < 0 || e.Value >= GroupCount) {
			return validationErrorf("event %d selects group %d of %d", i, e.Value, GroupCount)
		}
	}
	return nil
}
