package ptcow_test

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"
)

func TestMIDIExport(t *testing.T) {
	song := testSong()
	data, err := song.MIDI()
	if err != nil {
		t.Fatalf("MIDI failed: %v", err)
	}
	file, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("the exported file does not parse back: %v", err)
	}
	if want := len(song.Units) + 1; len(file.Tracks) != want {
		t.Fatalf("got %v tracks, expected %v", len(file.Tracks), want)
	}
	ticks, ok := file.TimeFormat.(smf.MetricTicks)
	if !ok {
		t.Fatalf("got time format %v, expected metric ticks", file.TimeFormat)
	}
	if uint16(ticks) != song.Master.Timing.TicksPerBeat {
		t.Errorf("got %v ticks per beat, expected %v", uint16(ticks), song.Master.Timing.TicksPerBeat)
	}
	// the default key must land on A4
	var notes []uint8
	for _, ev := range file.Tracks[1] {
		var ch, key, vel uint8
		if ev.Message.GetNoteOn(&ch, &key, &vel) {
			notes = append(notes, key)
		}
	}
	if len(notes) != 1 || notes[0] != 69 {
		t.Errorf("got notes %v, expected exactly one note 69", notes)
	}
	var bpm float64
	foundTempo := false
	for _, ev := range file.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			foundTempo = true
		}
	}
	// the tempo is stored as whole microseconds per quarter note, so allow
	// for the rounding
	want := float64(song.Master.Timing.BPM)
	if !foundTempo || bpm < want-0.01 || bpm > want+0.01 {
		t.Errorf("got tempo %v (found %v), expected about %v", bpm, foundTempo, want)
	}
}

func TestMIDIExportInvalidSong(t *testing.T) {
	song := testSong()
	song.Events.Events[0].Unit = 200
	if _, err := song.MIDI(); err == nil {
		t.Errorf("expected an error for a song that does not validate")
	}
}
