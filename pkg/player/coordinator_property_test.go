package player

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property-based tests for the playback state machine. Arbitrary
// command sequences are thrown at a coordinator driving a scripted
// adapter, and the observed event stream is checked against the
// machine's transition rules.

var legalTransitions = map[State][]State{
	StateIdle:     {StateLoading},
	StateLoading:  {StatePlaying, StateError, StateStopping, StateLoading},
	StatePlaying:  {StatePaused, StateStopping, StateError, StateLoading},
	StatePaused:   {StatePlaying, StateStopping, StateError, StateLoading},
	StateStopping: {StateIdle},
	StateError:    {StateLoading, StateStopping},
}

func transitionLegal(from, to State) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func TestCoordinatorTransitionProperties(t *testing.T) {
	defer quickProbe(t)()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary command sequences only produce legal transitions", prop.ForAll(
		func(commands []int) bool {
			tracker := newFakeAdapter(BackendTracker, trackerCaps())
			tracker.advancePerSample = 0.001
			tracker.duration = 100

			reg := NewRegistry(nil)
			reg.Register(BackendTracker, tracker.factory())
			reg.Probe()

			obs := &recordingObserver{}
			c := newCoordinator(reg, obs, time.Millisecond)
			defer c.Close()

			for _, cmd := range commands {
				switch cmd % 5 {
				case 0:
					c.Load(modTrack())
				case 1:
					c.Play()
				case 2:
					c.Pause()
				case 3:
					c.Resume()
				case 4:
					c.Stop()
				}
				time.Sleep(2 * time.Millisecond)
			}
			// Let in-flight loads and ticks settle.
			waitFor(200*time.Millisecond, func() bool {
				s := c.State()
				return s != StateLoading && s != StateStopping
			})

			obs.mu.Lock()
			states := make([]State, len(obs.states))
			copy(states, obs.states)
			obs.mu.Unlock()

			prev := StateIdle
			for _, s := range states {
				if !transitionLegal(prev, s) {
					t.Logf("illegal transition %v -> %v in %v", prev, s, states)
					return false
				}
				prev = s
			}

			tracker.mu.Lock()
			violation := tracker.violation
			tracker.mu.Unlock()
			if violation != "" {
				t.Logf("adapter contract: %s", violation)
				return false
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 4)),
	))

	properties.Property("progress time is monotonic between loads", prop.ForAll(
		func(ticks int) bool {
			tracker := newFakeAdapter(BackendTracker, trackerCaps())
			tracker.advancePerSample = 0.01
			tracker.duration = 1000

			reg := NewRegistry(nil)
			reg.Register(BackendTracker, tracker.factory())
			reg.Probe()

			obs := &recordingObserver{}
			c := newCoordinator(reg, obs, time.Millisecond)
			defer c.Close()

			c.Load(modTrack())
			waitFor(time.Second, func() bool { return c.State() == StatePlaying })
			time.Sleep(time.Duration(ticks) * time.Millisecond)
			c.Stop()
			waitFor(time.Second, func() bool { return c.State() == StateIdle })

			samples := obs.progressSamples()
			if len(samples) == 0 {
				return true
			}
			// The trailing zeroed sample belongs to the stop.
			last := -1.0
			for _, s := range samples[:len(samples)-1] {
				if s.CurrentTime < last {
					return false
				}
				last = s.CurrentTime
			}
			return samples[len(samples)-1] == (Telemetry{})
		},
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
