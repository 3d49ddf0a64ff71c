package ptcow_test

import (
	"errors"
	"math"
	"testing"

	"github.com/crumblingstatue/ptcow"
)

func renderAll(t *testing.T, m *ptcow.Moo) []int16 {
	t.Helper()
	var out []int16
	buf := make([]int16, 512)
	for {
		n, more := m.Render(buf)
		out = append(out, buf[:n]...)
		if !more {
			return out
		}
		if len(out) > 1<<26 {
			t.Fatalf("render does not terminate")
		}
	}
}

func TestRenderLength(t *testing.T) {
	song := testSong()
	m, err := ptcow.NewMoo(song, 44100, ptcow.MooPlan{})
	if err != nil {
		t.Fatalf("NewMoo failed: %v", err)
	}
	if errs := m.VoiceErrors(); len(errs) != 0 {
		t.Fatalf("unexpected voice errors: %v", errs)
	}
	buf := renderAll(t, m)
	want := int(m.SampleEnd()) * ptcow.MaxChannels
	if len(buf) != want {
		t.Errorf("rendered %v values, expected %v", len(buf), want)
	}
	all0 := true
	for _, s := range buf {
		if s != 0 {
			all0 = false
			break
		}
	}
	if all0 {
		t.Errorf("rendered silence for a song with notes")
	}
}

func TestRenderDeterminism(t *testing.T) {
	a, err := ptcow.NewMoo(testSong(), 44100, ptcow.MooPlan{})
	if err != nil {
		t.Fatalf("NewMoo failed: %v", err)
	}
	b, err := ptcow.NewMoo(testSong(), 44100, ptcow.MooPlan{})
	if err != nil {
		t.Fatalf("NewMoo failed: %v", err)
	}
	bufA := renderAll(t, a)
	bufB := renderAll(t, b)
	if len(bufA) != len(bufB) {
		t.Fatalf("length mismatch, got %v and %v", len(bufA), len(bufB))
	}
	for i := range bufA {
		if bufA[i] != bufB[i] {
			t.Fatalf("sample mismatch at %v, got %v and %v", i, bufA[i], bufB[i])
		}
	}
}

func TestRenderLoopWrapsAround(t *testing.T) {
	song := testSong()
	m, err := ptcow.NewMoo(song, 44100, ptcow.MooPlan{Loop: true})
	if err != nil {
		t.Fatalf("NewMoo failed: %v", err)
	}
	buf := make([]int16, 512)
	frames := int(m.SampleEnd()) + 44100
	wrapped := false
	prev := m.SampleCount()
	for rendered := 0; rendered < frames; {
		n, more := m.Render(buf)
		if !more {
			t.Fatalf("a looping session reported an end")
		}
		rendered += n / ptcow.MaxChannels
		if m.SampleCount() < prev {
			wrapped = true
		}
		prev = m.SampleCount()
	}
	if !wrapped {
		t.Errorf("playback never wrapped back to the repeat point")
	}
}

// Rendering the repeat measure a second time around must give the same
// samples as the first pass: the wrap resets the units and replays the
// timeline from the start.
func TestRenderLoopRepeatsIdentically(t *testing.T) {
	song := testSong()
	song.Delays = nil
	song.Overdrives = nil
	// a note right at the repeat point so the compared block carries signal
	song.Events.Events = append(song.Events.Events,
		ptcow.Event{Tick: 1920, Unit: 0, Kind: ptcow.EventOn, Value: 480})
	m, err := ptcow.NewMoo(song, 44100, ptcow.MooPlan{Loop: true})
	if err != nil {
		t.Fatalf("NewMoo failed: %v", err)
	}
	const compare = 4096
	end := int(m.SampleEnd())
	firstPass := make([][2]int16, end)
	buf := make([]int16, 2)
	for i := 0; i < end; i++ {
		if n, _ := m.Render(buf); n != 2 {
			t.Fatalf("frame %v: rendered %v values, expected 2", i, n)
		}
		firstPass[i] = [2]int16{buf[0], buf[1]}
	}
	prev := m.SampleCount()
	repeat := -1
	signal := false
	for i := 0; i < compare; i++ {
		if n, _ := m.Render(buf); n != 2 {
			t.Fatalf("wrapped frame %v: rendered %v values, expected 2", i, n)
		}
		if repeat < 0 {
			if m.SampleCount() >= prev {
				t.Fatalf("playback did not wrap at the end measure")
			}
			repeat = int(m.SampleCount()) - 1
		}
		want := firstPass[repeat+i]
		if buf[0] != want[0] || buf[1] != want[1] {
			t.Fatalf("frame %v after the wrap is [%v %v], first pass had %v",
				i, buf[0], buf[1], want)
		}
		if want != ([2]int16{}) {
			signal = true
		}
	}
	if !signal {
		t.Errorf("the compared block is all silence")
	}
}

func TestZeroEnvelopeResolutionStillPlays(t *testing.T) {
	song := testSong()
	song.Voices[0].Units[0].Envelope.SecondsPerPoint = 0
	data, err := song.Write()
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := ptcow.ReadSong(data)
	if err != nil {
		t.Fatalf("ReadSong failed: %v", err)
	}
	m, err := ptcow.NewMoo(got, 44100, ptcow.MooPlan{})
	if err != nil {
		t.Fatalf("NewMoo failed: %v", err)
	}
	if got := renderAll(t, m); len(got) != int(m.SampleEnd())*ptcow.MaxChannels {
		t.Errorf("rendered %v values, expected %v", len(got), int(m.SampleEnd())*ptcow.MaxChannels)
	}
}

func TestBadDelayFrequencyStillPlays(t *testing.T) {
	for _, freq := range []float32{0, -1, float32(math.NaN())} {
		song := testSong()
		song.Delays[0].Freq = freq
		m, err := ptcow.NewMoo(song, 44100, ptcow.MooPlan{})
		if err != nil {
			t.Fatalf("freq %v: NewMoo failed: %v", freq, err)
		}
		renderAll(t, m)
	}
}

func TestRenderStartAtMeas(t *testing.T) {
	song := testSong()
	m, err := ptcow.NewMoo(song, 44100, ptcow.MooPlan{Start: ptcow.StartAtMeas(1)})
	if err != nil {
		t.Fatalf("NewMoo failed: %v", err)
	}
	whole, err := ptcow.NewMoo(testSong(), 44100, ptcow.MooPlan{})
	if err != nil {
		t.Fatalf("NewMoo failed: %v", err)
	}
	if got := renderAll(t, m); len(got) >= len(renderAll(t, whole)) {
		t.Errorf("starting mid song did not shorten the render")
	}
}

func TestBrokenVorbisVoiceRendersSilence(t *testing.T) {
	song := ptcow.NewSong()
	song.Master.MeasNum = 1
	song.Voices = []*ptcow.Voice{{Units: []ptcow.VoiceUnit{{
		BasicKey: ptcow.DefaultBasicKey,
		Tuning:   1,
		Data:     &ptcow.OggVData{Channels: 2, SampleRate: 44100, SampleNum: 100, Raw: []byte("not an ogg stream")},
	}}}}
	song.Units = []*ptcow.Unit{{Name: "broken"}}
	song.Events.Events = []ptcow.Event{
		{Tick: 0, Unit: 0, Kind: ptcow.EventOn, Value: 480},
	}
	m, err := ptcow.NewMoo(song, 44100, ptcow.MooPlan{})
	if err != nil {
		t.Fatalf("NewMoo failed: %v", err)
	}
	errs := m.VoiceErrors()
	if len(errs) != 1 {
		t.Fatalf("got %v voice errors, expected 1", len(errs))
	}
	var voiceErr *ptcow.VoiceError
	if !errors.As(errs[0], &voiceErr) {
		t.Fatalf("got %T, expected a VoiceError", errs[0])
	}
	for i, s := range renderAll(t, m) {
		if s != 0 {
			t.Fatalf("nonzero sample %v at %v from an undecodable voice", s, i)
		}
	}
}

func TestMutedUnitIsSilent(t *testing.T) {
	song := testSong()
	for _, u := range song.Units {
		u.Mute = true
	}
	m, err := ptcow.NewMoo(song, 44100, ptcow.MooPlan{})
	if err != nil {
		t.Fatalf("NewMoo failed: %v", err)
	}
	for i, s := range renderAll(t, m) {
		if s != 0 {
			t.Fatalf("nonzero sample %v at %v from a fully muted song", s, i)
		}
	}
}

func TestRenderRejectsBadRate(t *testing.T) {
	if _, err := ptcow.NewMoo(testSong(), 0, ptcow.MooPlan{}); err == nil {
		t.Errorf("expected an error for a zero sample rate")
	}
	if _, err := ptcow.NewMoo(testSong(), -44100, ptcow.MooPlan{}); err == nil {
		t.Errorf("expected an error for a negative sample rate")
	}
}
