package ptcow

import (
	"bytes"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// MIDI converts the song into a format 1 standard MIDI file. Track 0 carries
// the tempo, meter and song name; every unit gets a track of its own. Note
// events map directly, velocity, volume and panning map to note velocity and
// controllers 7 and 10. Effects, groups and tunings have no MIDI counterpart
// and are left out.
func (s *Song) MIDI() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("midi export: %w", err)
	}
	f := smf.New()
	f.TimeFormat = smf.MetricTicks(s.Master.Timing.TicksPerBeat)

	var meta smf.Track
	if s.Name != "" {
		meta.Add(0, smf.MetaTrackSequenceName(s.Name))
	}
	if s.Comment != "" {
		meta.Add(0, smf.MetaText(s.Comment))
	}
	meta.Add(0, smf.MetaTempo(float64(s.Master.Timing.BPM)))
	meta.Add(0, smf.MetaMeter(s.Master.Timing.BeatsPerMeas, 4))
	meta.Close(0)
	if err := f.Add(meta); err != nil {
		return nil, fmt.Errorf("midi export: %w", err)
	}

	for i, u := range s.Units {
		tr, err := unitTrack(s, uint8(i), u.Name)
		if err != nil {
			return nil, fmt.Errorf("midi export: unit %d: %w", i, err)
		}
		if err := f.Add(tr); err != nil {
			return nil, fmt.Errorf("midi export: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("midi export: %w", err)
	}
	return buf.Bytes(), nil
}

// midiMessage is a MIDI message pinned to an absolute tick. ord breaks ties
// so that note offs land before note ons happening at the same tick.
type midiMessage struct {
	tick Tick
	ord  int
	msg  midi.Message
}

func unitTrack(s *Song, unit uint8, name string) (smf.Track, error) {
	var tr smf.Track
	if name != "" {
		tr.Add(0, smf.MetaInstrument(name))
	}
	ch := unit % 16

	var msgs []midiMessage
	key := Key(DefaultKey)
	velocity := uint8(DefaultVelocity)
	for _, e := range s.Events.Events {
		if e.Unit != unit {
			continue
		}
		switch e.Kind {
		case EventOn:
			note := midiNote(key)
			msgs = append(msgs,
				midiMessage{e.Tick, 1, midi.NoteOn(ch, note, velocity)},
				midiMessage{e.Tick + Tick(e.Value), 0, midi.NoteOff(ch, note)})
		case EventKey:
			key = e.Value
		case EventVelocity:
			velocity = clampMidi(e.Value)
		case EventVolume:
			msgs = append(msgs, midiMessage{e.Tick, 1, midi.ControlChange(ch, 7, clampMidi(e.Value))})
		case EventPanVolume:
			msgs = append(msgs, midiMessage{e.Tick, 1, midi.ControlChange(ch, 10, clampMidi(e.Value))})
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return msgs[i].ord < msgs[j].ord
	})

	var clock Tick
	for _, m := range msgs {
		tr.Add(m.tick-clock, m.msg)
		clock = m.tick
	}
	tr.Close(0)
	return tr, nil
}

// midiNote converts a key to a MIDI note number. The default key maps to
// A4 (note 69), matching the default basic key of a voice.
func midiNote(key Key) uint8 {
	n := key/256 - 27
	if n < 0 {
		n = 0
	} else if n > 127 {
		n = 127
	}
	return uint8(n)
}

func clampMidi(v int32) uint8 {
	if v < 0 {
		v = 0
	} else if v > 127 {
		v = 127
	}
	return uint8(v)
}
