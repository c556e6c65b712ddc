package player

import (
	"sync"
	"time"

	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/pipeline"
)

// fakeAdapter is a scripted adapter for coordinator and selection
// tests. It records every call and enforces the call-order contract so
// a coordinator bug that drives an adapter in the wrong state fails
// the test instead of passing silently.
type fakeAdapter struct {
	mu   sync.Mutex
	desc Descriptor

	bank bool

	loadErr   error
	playErr   error
	sampleErr error
	loadDelay time.Duration

	// advancePerSample moves the reported position forward on every
	// Sample call.
	advancePerSample float64
	duration         float64

	loaded   bool
	playing  bool
	position float64

	calls       []string
	loadedAs    []string
	stops       int
	playCalls   int
	activeLoads int
	volume      float64
	violation   string
}

func newFakeAdapter(kind BackendKind, caps Capabilities) *fakeAdapter {
	return &fakeAdapter{
		desc: Descriptor{
			Kind: kind,
			Name: kind.String(),
			Caps: caps,
		},
		duration: 1.0,
	}
}

func trackerCaps() Capabilities {
	return Capabilities{
		DecodesTracker:     true,
		SupportsPause:      true,
		SupportsResume:     true,
		ReportsDuration:    true,
		ReportsCurrentTime: true,
		ReportsVoices:      true,
	}
}

func midiCaps() Capabilities {
	return Capabilities{
		DecodesMIDI:        true,
		SupportsPause:      true,
		SupportsResume:     true,
		ReportsDuration:    true,
		ReportsCurrentTime: true,
	}
}

func (f *fakeAdapter) factory() Factory {
	return func(pipeline.Pipeline) (Adapter, error) { return f, nil }
}

func (f *fakeAdapter) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeAdapter) violate(msg string) {
	if f.violation == "" {
		f.violation = msg
	}
}

func (f *fakeAdapter) Descriptor() *Descriptor { return &f.desc }

func (f *fakeAdapter) Load(track *Track) error {
	f.mu.Lock()
	f.activeLoads++
	if f.activeLoads > 1 {
		f.violate("overlapping loads")
	}
	delay := f.loadDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.activeLoads--
	f.record("load")
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = true
	f.playing = false
	f.position = 0
	f.loadedAs = append(f.loadedAs, track.Filename)
	return nil
}

func (f *fakeAdapter) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("play")
	f.playCalls++
	if f.playErr != nil {
		return f.playErr
	}
	if !f.loaded {
		f.violate("play before load")
	}
	f.playing = true
	return nil
}

func (f *fakeAdapter) Pause() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("pause")
	if !f.playing {
		f.violate("pause while not playing")
	}
	f.playing = false
	return false, nil
}

func (f *fakeAdapter) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("resume")
	if !f.loaded {
		f.violate("resume before load")
	}
	f.playing = true
	return nil
}

func (f *fakeAdapter) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop")
	f.stops++
	f.loaded = false
	f.playing = false
}

func (f *fakeAdapter) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
}

func (f *fakeAdapter) Sample() (Telemetry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("sample")
	if f.sampleErr != nil {
		return Telemetry{}, f.sampleErr
	}
	if !f.loaded {
		f.violate("sample before load")
	}
	if f.playing {
		f.position += f.advancePerSample
	}
	t := Telemetry{}
	if f.desc.Caps.ReportsCurrentTime {
		t.CurrentTime = f.position
	}
	if f.desc.Caps.ReportsDuration {
		t.Duration = f.duration
	}
	return t, nil
}

func (f *fakeAdapter) LoadSoundBank(data []byte, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("loadbank:" + name)
	if !f.desc.Caps.ConsumesSoundBank {
		return newError(ErrBackendInternal, nil, "no bank support")
	}
	f.bank = true
	return nil
}

func (f *fakeAdapter) SoundBankLoaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bank
}

func (f *fakeAdapter) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAdapter) lastLoaded() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.loadedAs) == 0 {
		return ""
	}
	return f.loadedAs[len(f.loadedAs)-1]
}

func (f *fakeAdapter) checkViolations(t testingT) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.violation != "" {
		t.Errorf("adapter contract violated: %s", f.violation)
	}
}

type testingT interface {
	Errorf(format string, args ...any)
}

// recordingObserver captures the coordinator's event stream.
type recordingObserver struct {
	mu       sync.Mutex
	states   []State
	sessions []SessionID
	progress []Telemetry
	ends     int
	errors   []ErrorKind
}

func (r *recordingObserver) OnStateChange(s State, id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
	r.sessions = append(r.sessions, id)
}

func (r *recordingObserver) OnProgress(t Telemetry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, t)
}

func (r *recordingObserver) OnTrackEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends++
}

func (r *recordingObserver) OnError(kind ErrorKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, kind)
}

func (r *recordingObserver) lastState() (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return StateIdle, false
	}
	return r.states[len(r.states)-1], true
}

func (r *recordingObserver) sawState(s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.states {
		if got == s {
			return true
		}
	}
	return false
}

func (r *recordingObserver) errorKinds() []ErrorKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorKind, len(r.errors))
	copy(out, r.errors)
	return out
}

func (r *recordingObserver) progressSamples() []Telemetry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Telemetry, len(r.progress))
	copy(out, r.progress)
	return out
}

func (r *recordingObserver) trackEnds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ends
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
