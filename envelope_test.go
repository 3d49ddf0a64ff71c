package ptcow

import "testing"

func TestEnvelopePrepareEmpty(t *testing.T) {
	var env EnvelopeSrc
	table, release := env.prepare(44100)
	if table != nil || release != 0 {
		t.Errorf("got table %v release %v, expected none", table, release)
	}
}

func TestEnvelopePrepareZeroResolution(t *testing.T) {
	env := EnvelopeSrc{
		Points: []EnvPoint{{X: 10, Y: 128}, {X: 100, Y: 0}},
	}
	table, release := env.prepare(44100)
	if table != nil || release != 0 {
		t.Errorf("got table %v release %v, expected the envelope skipped", table, release)
	}
}

func TestEnvelopePrepareRamp(t *testing.T) {
	env := EnvelopeSrc{
		SecondsPerPoint: 1000,
		Points:          []EnvPoint{{X: 10, Y: 128}, {X: 100, Y: 0}},
	}
	table, release := env.prepare(44100)
	if want := 441; len(table) != want {
		t.Fatalf("got table of %v samples, expected %v", len(table), want)
	}
	if table[0] != 0 {
		t.Errorf("ramp does not start at zero, got %v", table[0])
	}
	if table[len(table)-1] < 120 {
		t.Errorf("ramp does not approach full volume, got %v", table[len(table)-1])
	}
	for i := 1; i < len(table); i++ {
		if table[i] < table[i-1] {
			t.Fatalf("ramp decreases at %v: %v after %v", i, table[i], table[i-1])
		}
	}
	if want := uint32(4410); release != want {
		t.Errorf("got release %v, expected %v", release, want)
	}
}

func TestEnvelopePrepareHoldsLastValue(t *testing.T) {
	env := EnvelopeSrc{
		SecondsPerPoint: 1000,
		Points: []EnvPoint{
			{X: 10, Y: 128},
			{X: 10, Y: 64},
			{X: 50, Y: 0},
		},
	}
	table, _ := env.prepare(44100)
	if len(table) == 0 {
		t.Fatalf("expected a non empty table")
	}
	// rises to the first point, then falls towards the second
	if got := table[440]; got < 120 {
		t.Errorf("got peak volume %v, expected near 128", got)
	}
	if got := table[len(table)-1]; got < 64 || got > 66 {
		t.Errorf("got final volume %v, expected near the last point value 64", got)
	}
}

func TestEnvelopePrepareReleaseOnly(t *testing.T) {
	env := EnvelopeSrc{
		SecondsPerPoint: 1000,
		Points:          []EnvPoint{{X: 100, Y: 0}},
	}
	table, release := env.prepare(44100)
	if len(table) != 1 {
		t.Errorf("got table of %v samples, expected 1", len(table))
	}
	if want := uint32(4410); release != want {
		t.Errorf("got release %v, expected %v", release, want)
	}
}
