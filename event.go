package ptcow

import (
	"math"
	"sort"
)

// Key is a note pitch in 1/256ths of a semitone.
type Key = int32

// Playback defaults applied when a unit is (re)initialized.
const (
	DefaultVolume   = 104
	DefaultVelocity = 104
	DefaultKey      = 24576
	DefaultBasicKey = 17664
	DefaultTuning   = 1.0
)

// EventKind discriminates the payload of an Event.
type EventKind uint8

const (
	// EventNull does nothing and terminates playback when encountered.
	EventNull EventKind = iota
	// EventOn turns the target unit on; Value is the duration in ticks.
	EventOn
	// EventKey changes the key of the target unit.
	EventKey
	// EventPanVolume sets the pan volume, 0 full left to 128 full right.
	EventPanVolume
	// EventVelocity sets how hard notes are hit, normally 0 to 128.
	EventVelocity
	// EventVolume sets the unit volume, normally 0 to 128.
	EventVolume
	// EventPortament sets up a slide to the next key change; Value is the
	// slide duration in ticks.
	EventPortament
	// EventBeatClock through EventLast are parsed for compatibility and
	// ignored during playback. V5 songs store their timing in the MasterV5
	// chunk.
	EventBeatClock
	// EventBeatTempo is ignored during playback.
	EventBeatTempo
	// EventBeatNum is ignored during playback.
	EventBeatNum
	// EventRepeat is ignored during playback.
	EventRepeat
	// EventLast is ignored during playback.
	EventLast
	// EventSetVoice sets the voice index of the target unit.
	EventSetVoice
	// EventSetGroup sets the sample group of the target unit.
	EventSetGroup
	// EventTuning sets the fine tuning of the target unit; Value holds the
	// float32 bits.
	EventTuning
	// EventPanTime offsets the left and right channel sampling positions
	// against each other. Value is within 0..128, 64 meaning no offset.
	EventPanTime

	eventKindCount
)

// Event is a single playback instruction on the song timeline.
type Event struct {
	// The tick the event takes place at.
	Tick Tick
	// Index of the unit the event addresses.
	Unit uint8
	Kind EventKind
	// Raw event value; interpretation depends on Kind.
	Value int32
}

// Tuning decodes the Value of an EventTuning event.
func (e Event) Tuning() float32 {
	return math.Float32frombits(uint32(e.Value))
}

// duration returns how long the event keeps its unit busy past its tick.
func (e Event) duration() Tick {
	switch e.Kind {
	case EventOn, EventPortament:
		return uint32(e.Value)
	}
	return 0
}

// EventList is the single merged timeline of a song.
//
// Playback assumes the events are sorted by tick in ascending order. Call
// Sort after modifying the list to restore that invariant.
type EventList struct {
	Events []Event
	// Value of the size field in the serialized form. Its meaning as a size
	// seems to be a lie in newer format revisions; we write it back verbatim.
	serSize uint32
}

// Sort restores the ascending tick order, keeping the relative order of
// events on the same tick.
func (l *EventList) Sort() {
	sort.SliceStable(l.Events, func(i, j int) bool {
		return l.Events[i].Tick < l.Events[j].Tick
	})
}

// MaxTick returns the largest tick covered by any event, including note
// durations.
func (l *EventList) MaxTick() Tick {
	var max Tick
	for _, e := range l.Events {
		if end := e.Tick + e.duration(); end > max {
			max = end
		}
	}
	return max
}

// On the wire each event is a varint tick delta from the previous event, the
// unit index, the kind and a varint value.
func readEvents(r *reader) (EventList, error) {
	size, err := r.u32("size")
	if err != nil {
		return EventList{}, err
	}
	count, err := r.u32("event count")
	if err != nil {
		return EventList{}, err
	}
	var absolute Tick
	var events []Event
	for i := uint32(0); i < count; i++ {
		delta, err := r.varint("tick delta")
		if err != nil {
			return EventList{}, err
		}
		unit, err := r.u8("unit")
		if err != nil {
			return EventList{}, err
		}
		kind, err := r.u8("kind")
		if err != nil {
			return EventList{}, err
		}
		value, err := r.varint("value")
		if err != nil {
			return EventList{}, err
		}
		if EventKind(kind) >= eventKindCount {
			return EventList{}, r.malformed("kind")
		}
		absolute += delta
		events = append(events, Event{
			Tick:  absolute,
			Unit:  unit,
			Kind:  EventKind(kind),
			Value: int32(value),
		})
	}
	return EventList{Events: events, serSize: size}, nil
}

func (l *EventList) write(out []byte) []byte {
	out = append(out, tagEventV5...)
	out = appendU32(out, l.serSize)
	out = appendU32(out, uint32(len(l.Events)))
	var absolute Tick
	for _, e := range l.Events {
		out = appendVarint(out, e.Tick-absolute)
		absolute = e.Tick
		out = append(out, e.Unit, byte(e.Kind))
		out = appendVarint(out, uint32(e.Value))
	}
	return out
}
