package midi

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// buildTempoFixture builds a file with the given tempo changes (spaced
// gap ticks apart) and a final note-off at endTick past the last change.
func buildTempoFixture(tempos []int, gap, tail int) []byte {
	tb := &trackBuilder{}
	tb.noteOn(0, 60, 100)
	for i, micros := range tempos {
		delta := gap
		if i == 0 {
			delta = 0
		}
		tb.tempo(delta, micros)
	}
	tb.noteOff(tail, 60)
	tb.endOfTrack(0)
	return buildFile(0, 480, tb.chunk())
}

// TestProperty_TempoDoublingHalvesDuration checks that doubling every
// set-tempo value's microseconds-per-quarter doubles the duration, which
// is the same statement as: halving the values halves it.
func TestProperty_TempoDoublingHalvesDuration(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("doubled tempo values double the duration", prop.ForAll(
		func(tempoCount int, baseMicros int, gap int, tail int) bool {
			tempos := make([]int, tempoCount)
			doubled := make([]int, tempoCount)
			for i := range tempos {
				micros := baseMicros + i*1000
				tempos[i] = micros
				doubled[i] = micros * 2
			}

			docA, err := Parse(buildTempoFixture(tempos, gap, tail))
			if err != nil {
				return false
			}
			docB, err := Parse(buildTempoFixture(doubled, gap, tail))
			if err != nil {
				return false
			}

			return math.Abs(docB.Duration-2*docA.Duration) < 1e-6
		},
		gen.IntRange(1, 8),
		gen.IntRange(100000, 2000000),
		gen.IntRange(1, 4800),
		gen.IntRange(1, 48000),
	))

	properties.TestingRun(t)
}

// TestProperty_DurationEqualsSegmentSum checks the piecewise walk: the
// document duration must equal the sum of per-segment durations computed
// independently from the tempo map, within a millisecond.
func TestProperty_DurationEqualsSegmentSum(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("duration equals per-segment sum", prop.ForAll(
		func(tempoCount int, baseMicros int, gap int, tail int) bool {
			tempos := make([]int, tempoCount)
			for i := range tempos {
				tempos[i] = baseMicros + i*1000
			}

			doc, err := Parse(buildTempoFixture(tempos, gap, tail))
			if err != nil {
				return false
			}

			sum := 0.0
			events := doc.Tempo.Events
			for i, ev := range events {
				end := doc.EndTick
				if i+1 < len(events) {
					end = events[i+1].Tick
				}
				if end > doc.EndTick {
					end = doc.EndTick
				}
				if end <= ev.Tick {
					continue
				}
				sum += float64(end-ev.Tick) * float64(ev.MicrosPerQuarter) / 1e6 / float64(doc.TicksPerQuarter)
			}

			return math.Abs(doc.Duration-sum) < 1e-3
		},
		gen.IntRange(1, 8),
		gen.IntRange(100000, 2000000),
		gen.IntRange(1, 4800),
		gen.IntRange(1, 48000),
	))

	properties.TestingRun(t)
}

// TestProperty_MergedEventsSorted checks output ordering for arbitrary
// multi-track layouts: merged events are non-decreasing in tick, with the
// track index breaking ties.
func TestProperty_MergedEventsSorted(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("merged events sorted by tick then track", prop.ForAll(
		func(trackCount int, notesPerTrack int, spacing int) bool {
			chunks := make([][]byte, trackCount)
			for ti := 0; ti < trackCount; ti++ {
				tb := &trackBuilder{}
				for n := 0; n < notesPerTrack; n++ {
					tb.noteOn(spacing, byte(48+n%24), 100)
					tb.noteOff(spacing, byte(48+n%24))
				}
				tb.endOfTrack(0)
				chunks[ti] = tb.chunk()
			}

			doc, err := Parse(buildFile(1, 480, chunks...))
			if err != nil {
				return false
			}

			lastTick, lastTrack := -1, -1
			for _, ev := range doc.Events {
				if ev.Tick < lastTick {
					return false
				}
				if ev.Tick == lastTick && ev.Track < lastTrack {
					return false
				}
				lastTick, lastTrack = ev.Tick, ev.Track
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 20),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

// TestProperty_VarLenRoundTrip checks the decoder against the fixture
// encoder for arbitrary values.
func TestProperty_VarLenRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("variable-length quantities round-trip", prop.ForAll(
		func(value int) bool {
			tb := &trackBuilder{}
			writeVarLen(&tb.data, value)
			decoded, n, err := readVarLen(tb.data.Bytes())
			return err == nil && n == tb.data.Len() && decoded == value
		},
		gen.IntRange(0, 0x0FFFFFFF),
	))

	properties.TestingRun(t)
}
