// Package midi implements a Standard MIDI File parser. It produces a
// Document holding the file header fields, a flat time-sorted event list
// merged across tracks, the tempo map, and a tempo-aware duration estimate.
package midi

import (
	"errors"
	"fmt"
)

// Parse errors. ErrTruncatedTrack is returned only when a track other than
// the last one is cut short; a truncated final track is recovered and
// reported through Document.Truncated instead.
var (
	ErrMalformedHeader     = errors.New("malformed MIDI header")
	ErrTruncatedTrack      = errors.New("truncated MIDI track")
	ErrUnsupportedDivision = errors.New("unsupported MIDI time division")
)

// EventType identifies the retained MIDI event kinds.
type EventType int

const (
	NoteOff EventType = iota
	NoteOn
	PolyphonicPressure
	ControlChange
	ProgramChange
	ChannelPressure
	PitchBend
	MetaTempo
	MetaTimeSignature
	MetaKeySignature
	MetaEndOfTrack
)

func (t EventType) String() string {
	switch t {
	case NoteOff:
		return "note-off"
	case NoteOn:
		return "note-on"
	case PolyphonicPressure:
		return "poly-pressure"
	case ControlChange:
		return "control-change"
	case ProgramChange:
		return "program-change"
	case ChannelPressure:
		return "channel-pressure"
	case PitchBend:
		return "pitch-bend"
	case MetaTempo:
		return "set-tempo"
	case MetaTimeSignature:
		return "time-signature"
	case MetaKeySignature:
		return "key-signature"
	case MetaEndOfTrack:
		return "end-of-track"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is a single retained MIDI event at an absolute tick position.
//
// For channel events Data1/Data2 carry the message data bytes (note and
// velocity, controller and value, program, pressure). PitchBend combines
// both data bytes into Value (0..16383, centre 8192). MetaTempo carries
// microseconds per quarter note in Value. MetaTimeSignature carries the
// numerator in Data1 and the denominator power-of-two in Data2.
// MetaKeySignature carries the sharps/flats count in Data1 (as a signed
// byte) and major/minor in Data2.
type Event struct {
	Tick    int
	Track   int
	Type    EventType
	Channel uint8
	Data1   uint8
	Data2   uint8
	Value   int
}

// Document is the parsed form of a Standard MIDI File.
type Document struct {
	Format          int
	TrackCount      int  // track count declared in the header
	TicksPerQuarter int  // metric division from the header
	Truncated       bool // the final track was cut short and recovered

	// Events from all tracks merged and stably sorted by absolute tick,
	// with the originating track index as the tie break.
	Events []Event

	Tempo TempoMap

	EndTick  int     // largest absolute tick reached by any track
	Duration float64 // tempo-aware duration estimate in seconds
}
