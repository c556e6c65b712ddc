package midi

import "sort"

// DefaultMicrosPerQuarter is the tempo assumed when a file carries no
// set-tempo event (120 BPM).
const DefaultMicrosPerQuarter = 500000

// minDuration is the duration reported for degenerate files whose
// piecewise walk yields zero, so downstream progress math never divides
// by zero.
const minDuration = 3.0

// TempoEvent is a set-tempo meta event at an absolute tick position.
type TempoEvent struct {
	Tick             int
	MicrosPerQuarter int
}

// TempoMap is the ordered list of tempo changes of a file together with
// the header division, which is all the state needed to translate ticks
// into seconds.
type TempoMap struct {
	TicksPerQuarter int
	Events          []TempoEvent
}

// normalize sorts the events by tick and guarantees coverage from tick 0,
// inserting the default tempo when the file starts without one.
func (m *TempoMap) normalize() {
	sort.SliceStable(m.Events, func(i, j int) bool {
		return m.Events[i].Tick < m.Events[j].Tick
	})
	if len(m.Events) == 0 || m.Events[0].Tick > 0 {
		m.Events = append([]TempoEvent{{Tick: 0, MicrosPerQuarter: DefaultMicrosPerQuarter}}, m.Events...)
	}
}

// TimeAt converts an absolute tick position into seconds by walking the
// tempo segments. Within a segment starting at tempo event i, seconds
// advance at MicrosPerQuarter_i / 1e6 / TicksPerQuarter per tick.
func (m *TempoMap) TimeAt(tick int) float64 {
	if tick <= 0 || m.TicksPerQuarter <= 0 {
		return 0
	}

	seconds := 0.0
	for i, ev := range m.Events {
		if ev.Tick >= tick {
			break
		}
		segEnd := tick
		if i+1 < len(m.Events) && m.Events[i+1].Tick < tick {
			segEnd = m.Events[i+1].Tick
		}
		ticksInSegment := segEnd - ev.Tick
		seconds += float64(ticksInSegment) * float64(ev.MicrosPerQuarter) / 1e6 / float64(m.TicksPerQuarter)
	}
	return seconds
}

// TickAt is the inverse walk: it returns the tick position reached after
// the given number of elapsed seconds. Used by renderers that pace
// themselves on wall-clock or sample time.
func (m *TempoMap) TickAt(seconds float64) int {
	if seconds <= 0 || m.TicksPerQuarter <= 0 {
		return 0
	}

	elapsed := 0.0
	for i, ev := range m.Events {
		secondsPerTick := float64(ev.MicrosPerQuarter) / 1e6 / float64(m.TicksPerQuarter)
		if i+1 < len(m.Events) {
			segTicks := m.Events[i+1].Tick - ev.Tick
			segSeconds := float64(segTicks) * secondsPerTick
			if elapsed+segSeconds > seconds {
				return ev.Tick + int((seconds-elapsed)/secondsPerTick)
			}
			elapsed += segSeconds
			continue
		}
		return ev.Tick + int((seconds-elapsed)/secondsPerTick)
	}
	return 0
}
