// Package litesynth renders a parsed MIDI document to 16-bit stereo PCM
// using built-in sounds only: square-wave voices with decay envelopes and
// a noise generator for the percussion channel. It backs the lite
// back-end, which needs no sound bank.
package litesynth

import (
	"encoding/binary"
	"io"
	"math"
	"sync"

	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/midi"
)

const (
	percussionChannel = 9
	releaseSeconds    = 0.02 // short release ramp so note-offs do not click
	voiceGain         = 0.12
	maxVoices         = 16
)

// voice is one sounding note.
type voice struct {
	channel   uint8
	note      uint8
	freq      float64
	phase     float64
	amplitude float64
	released  bool
	level     float64 // envelope level, decays after release
	noise     bool
	rng       uint32
}

// Stream renders a Document as an io.Reader of interleaved 16-bit stereo
// little-endian samples. Read advances playback; the stream reports EOF
// once the document end is reached and all voices have faded.
type Stream struct {
	doc        *midi.Document
	sampleRate int

	mu          sync.Mutex
	eventTimes  []float64 // per-event absolute seconds, parallel to doc.Events
	eventIdx    int
	samplesDone int64 // samples rendered since the document origin
	voices      []*voice
	channelVol  [16]float64
	finished    bool
}

// New creates a stream positioned at the start of the document.
func New(doc *midi.Document, sampleRate int) *Stream {
	s := &Stream{
		doc:        doc,
		sampleRate: sampleRate,
		eventTimes: make([]float64, len(doc.Events)),
	}
	for i, ev := range doc.Events {
		s.eventTimes[i] = doc.Tempo.TimeAt(ev.Tick)
	}
	for i := range s.channelVol {
		s.channelVol[i] = 1.0
	}
	return s
}

// Duration returns the document duration in seconds.
func (s *Stream) Duration() float64 {
	return s.doc.Duration
}

// Position returns the rendered position in seconds.
func (s *Stream) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.samplesDone) / float64(s.sampleRate)
}

// Voices returns the number of currently sounding voices.
func (s *Stream) Voices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

// Finished reports whether the stream has rendered past the document end.
func (s *Stream) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// SetTime repositions the stream to the given offset in seconds. Channel
// state (program and volume controllers) is replayed up to the offset;
// notes sounding across the boundary are dropped.
func (s *Stream) SetTime(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seconds < 0 {
		seconds = 0
	}

	s.voices = nil
	s.finished = false
	s.samplesDone = int64(seconds * float64(s.sampleRate))
	s.eventIdx = 0
	for i := range s.channelVol {
		s.channelVol[i] = 1.0
	}

	for s.eventIdx < len(s.doc.Events) && s.eventTimes[s.eventIdx] < seconds {
		ev := s.doc.Events[s.eventIdx]
		if ev.Type == midi.ControlChange && ev.Data1 == 7 {
			s.channelVol[ev.Channel] = float64(ev.Data2) / 127.0
		}
		s.eventIdx++
	}
}

// Read implements io.Reader. The buffer is filled with interleaved 16-bit
// stereo little-endian samples.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return 0, io.EOF
	}

	sampleCount := len(p) / 4
	if sampleCount == 0 {
		return 0, nil
	}

	for i := 0; i < sampleCount; i++ {
		now := float64(s.samplesDone) / float64(s.sampleRate)
		s.dispatchEvents(now)

		sample := s.mix()
		v := int16(clamp(sample) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(v))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(v))

		s.samplesDone++
	}

	if s.eventIdx >= len(s.doc.Events) &&
		float64(s.samplesDone)/float64(s.sampleRate) >= s.doc.Duration &&
		len(s.voices) == 0 {
		s.finished = true
	}

	return sampleCount * 4, nil
}

// dispatchEvents applies all events due at or before the given time.
func (s *Stream) dispatchEvents(now float64) {
	for s.eventIdx < len(s.doc.Events) && s.eventTimes[s.eventIdx] <= now {
		ev := s.doc.Events[s.eventIdx]
		s.eventIdx++

		switch ev.Type {
		case midi.NoteOn:
			s.noteOn(ev.Channel, ev.Data1, ev.Data2)
		case midi.NoteOff:
			s.noteOff(ev.Channel, ev.Data1)
		case midi.ControlChange:
			switch ev.Data1 {
			case 7:
				s.channelVol[ev.Channel] = float64(ev.Data2) / 127.0
			case 120, 123: // all sound off / all notes off
				s.releaseChannel(ev.Channel)
			}
		}
	}
}

func (s *Stream) noteOn(channel, note, velocity uint8) {
	v := &voice{
		channel:   channel,
		note:      note,
		freq:      440.0 * math.Pow(2, (float64(note)-69)/12.0),
		amplitude: float64(velocity) / 127.0 * voiceGain,
		level:     1.0,
		rng:       uint32(note)*2654435761 + 1,
	}
	if channel == percussionChannel {
		v.noise = true
		v.released = true // percussion is a one-shot decay
	}
	// Steal the oldest voice at the polyphony cap.
	if len(s.voices) >= maxVoices {
		s.voices = s.voices[1:]
	}
	s.voices = append(s.voices, v)
}

func (s *Stream) noteOff(channel, note uint8) {
	for _, v := range s.voices {
		if v.channel == channel && v.note == note && !v.released {
			v.released = true
			return
		}
	}
}

func (s *Stream) releaseChannel(channel uint8) {
	for _, v := range s.voices {
		if v.channel == channel {
			v.released = true
		}
	}
}

// mix renders one mono sample from all voices and drops faded ones.
func (s *Stream) mix() float64 {
	sample := 0.0
	releaseStep := 1.0 / (releaseSeconds * float64(s.sampleRate))

	alive := s.voices[:0]
	for _, v := range s.voices {
		var wave float64
		if v.noise {
			v.rng = v.rng*1664525 + 1013904223
			wave = float64(int32(v.rng))/math.MaxInt32*0.5 - 0.25
			// Percussion decays faster than pitched releases.
			v.level -= releaseStep * 0.25
		} else {
			v.phase += v.freq / float64(s.sampleRate)
			if v.phase >= 1 {
				v.phase -= 1
			}
			if v.phase < 0.5 {
				wave = 1
			} else {
				wave = -1
			}
			if v.released {
				v.level -= releaseStep
			}
		}

		if v.level <= 0 {
			continue
		}
		sample += wave * v.amplitude * v.level * s.channelVol[v.channel]
		alive = append(alive, v)
	}
	s.voices = alive

	return sample
}

func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
