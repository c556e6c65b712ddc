package player

import (
	"fmt"
	"time"

	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/logger"
	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/midi"
)

// State is the coordinator's playback state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateStopping
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// SessionID distinguishes playback sessions so a slow load finishing
// after the user moved on cannot resurrect a dead session.
type SessionID uint64

// Observer receives coordinator events. Callbacks run on the event
// loop goroutine and must return quickly.
type Observer interface {
	OnStateChange(s State, id SessionID)
	OnProgress(t Telemetry)
	OnTrackEnd()
	OnError(kind ErrorKind, message string)
}

const (
	defaultTelemetryEvery = 100 * time.Millisecond

	// endEpsilon absorbs sample-cadence jitter at the end of a track.
	endEpsilon = 0.1

	// maxSampleFailures is how many consecutive telemetry failures the
	// coordinator tolerates before declaring the back-end broken.
	maxSampleFailures = 3
)

type session struct {
	id      SessionID
	track   *Track
	adapter Adapter

	// duration parsed out of the file for back-ends that cannot report
	// their own.
	duration float64

	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration

	// resumeFromZero is set when pause had to stop the back-end cold.
	resumeFromZero bool

	lastTime       float64
	sampleFailures int
}

// Coordinator owns the playback state machine. All state lives on a
// single event-loop goroutine; the exported methods post commands and
// never touch state directly, so callers from any goroutine see a
// consistent machine.
type Coordinator struct {
	registry *Registry
	observer Observer

	cmds chan func()
	done chan struct{}

	telemetryEvery time.Duration

	// loop-owned state below here.
	state   State
	pref    Preference
	volume  float64
	nextID  SessionID
	current *session

	// Adapters are one shared instance per back-end, so decodes must
	// not overlap: inflight marks a running load goroutine and pending
	// holds the session queued behind it.
	inflight bool
	pending  *session
}

// NewCoordinator builds a coordinator over reg, reporting to obs.
func NewCoordinator(reg *Registry, obs Observer) *Coordinator {
	return newCoordinator(reg, obs, defaultTelemetryEvery)
}

func newCoordinator(reg *Registry, obs Observer, every time.Duration) *Coordinator {
	c := &Coordinator{
		registry:       reg,
		observer:       obs,
		cmds:           make(chan func(), 16),
		done:           make(chan struct{}),
		telemetryEvery: every,
		state:          StateIdle,
		pref:           AutoPreference(),
		volume:         1.0,
	}
	go c.loop()
	return c
}

func (c *Coordinator) loop() {
	ticker := time.NewTicker(c.telemetryEvery)
	defer ticker.Stop()

	for {
		select {
		case cmd, ok := <-c.cmds:
			if !ok {
				c.shutdown()
				return
			}
			cmd()
		case <-ticker.C:
			c.onTick()
		}
	}
}

func (c *Coordinator) shutdown() {
	if c.current != nil && c.current.adapter != nil {
		c.current.adapter.Stop()
	}
	c.current = nil
	close(c.done)
}

// Close stops playback and terminates the event loop.
func (c *Coordinator) Close() {
	close(c.cmds)
	<-c.done
}

func (c *Coordinator) post(cmd func()) {
	defer func() {
		// Commands posted after Close are dropped.
		recover()
	}()
	c.cmds <- cmd
}

func (c *Coordinator) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	var id SessionID
	if c.current != nil {
		id = c.current.id
	}
	logger.GetLogger().Debug("playback state", "state", s.String(), "session", id)
	c.observer.OnStateChange(s, id)
}

func (c *Coordinator) fail(kind ErrorKind, message string) {
	logger.GetLogger().Error("playback error", "kind", kind.String(), "message", message)
	c.observer.OnError(kind, message)
	c.setState(StateError)
}

// Load starts a new session for track. Any active session is stopped
// first. Selection and decoding run off the loop; a completion for a
// superseded session is discarded.
func (c *Coordinator) Load(track *Track) {
	c.post(func() { c.startLoad(track) })
}

func (c *Coordinator) startLoad(track *Track) {
	c.dropCurrent()

	c.nextID++
	s := &session{id: c.nextID, track: track}
	c.current = s
	c.setState(StateLoading)

	if c.inflight {
		// An earlier decode still owns the shared adapters; run this
		// one when its completion comes back. A later request simply
		// takes the slot.
		c.pending = s
		return
	}
	c.launchLoad(s)
}

func (c *Coordinator) launchLoad(s *session) {
	track := s.track
	adapter, ignored, err := selectBackend(c.registry, track, c.pref)
	if ignored {
		c.observer.OnError(ErrPreferenceIgnored,
			fmt.Sprintf("preferred back-end %s cannot play %s, selecting automatically",
				c.pref.Kind, track.Filename))
	}
	if err != nil {
		c.finishLoad(s.id, nil, 0, err)
		return
	}

	c.inflight = true
	go func() {
		var duration float64
		if track.Kind == KindMIDI && !adapter.Descriptor().Caps.ReportsDuration {
			if doc, perr := midi.Parse(track.Data); perr == nil {
				duration = doc.Duration
			}
		}
		loadErr := adapter.Load(track)
		c.post(func() { c.finishLoad(s.id, adapter, duration, loadErr) })
	}()
}

func (c *Coordinator) finishLoad(id SessionID, adapter Adapter, duration float64, err error) {
	c.inflight = false

	if p := c.pending; p != nil {
		// This completion was superseded before its decode even began
		// to matter; release its adapter state and start the queued
		// session's decode.
		c.pending = nil
		if adapter != nil {
			adapter.Stop()
		}
		if c.current != nil && c.current.id == p.id {
			c.launchLoad(p)
		}
		return
	}

	if c.current == nil || c.current.id != id {
		// Superseded while loading; release whatever was decoded.
		// Loads never overlap, so no live session can be on this
		// adapter.
		if adapter != nil {
			adapter.Stop()
		}
		return
	}
	if err != nil {
		c.current = nil
		kind := ErrLoadFailure
		if pe, ok := err.(*Error); ok {
			kind = pe.Kind
		}
		c.fail(kind, err.Error())
		return
	}

	s := c.current
	s.adapter = adapter
	s.duration = duration
	adapter.SetVolume(c.volume)
	if perr := adapter.Play(); perr != nil {
		adapter.Stop()
		c.current = nil
		c.fail(ErrBackendInternal, perr.Error())
		return
	}
	s.startedAt = time.Now()
	s.pausedTotal = 0
	logger.GetLogger().Info("playing",
		"file", s.track.Filename,
		"backend", adapter.Descriptor().Name,
		"session", s.id)
	c.setState(StatePlaying)
}

// Play resumes a paused session. With no session loaded it reports
// ErrNoTrackSelected without entering the error state.
func (c *Coordinator) Play() {
	c.post(func() {
		switch c.state {
		case StatePaused:
			c.doResume()
		case StatePlaying, StateLoading:
			// Already in motion.
		default:
			if c.current == nil {
				c.observer.OnError(ErrNoTrackSelected, "no track selected")
			}
		}
	})
}

// Pause halts playback. A no-op outside the playing state.
func (c *Coordinator) Pause() {
	c.post(func() {
		if c.state != StatePlaying {
			return
		}
		s := c.current
		fromZero, err := s.adapter.Pause()
		if err != nil {
			c.dropCurrent()
			c.fail(ErrBackendInternal, err.Error())
			return
		}
		s.resumeFromZero = fromZero
		s.pausedAt = time.Now()
		c.setState(StatePaused)
	})
}

// Resume continues a paused session. A no-op outside the paused state.
func (c *Coordinator) Resume() {
	c.post(func() {
		if c.state != StatePaused {
			return
		}
		c.doResume()
	})
}

func (c *Coordinator) doResume() {
	s := c.current
	if err := s.adapter.Resume(); err != nil {
		c.dropCurrent()
		c.fail(ErrBackendInternal, err.Error())
		return
	}
	if s.resumeFromZero {
		s.startedAt = time.Now()
		s.pausedTotal = 0
		s.lastTime = 0
		s.resumeFromZero = false
	} else {
		s.pausedTotal += time.Since(s.pausedAt)
	}
	c.setState(StatePlaying)
}

// Stop ends the current session. The observer sees exactly one zeroed
// progress sample before the machine settles in idle.
func (c *Coordinator) Stop() {
	c.post(func() {
		switch c.state {
		case StateIdle, StateStopping:
			return
		}
		c.setState(StateStopping)
		c.dropCurrent()
		c.observer.OnProgress(Telemetry{})
		c.setState(StateIdle)
	})
}

func (c *Coordinator) dropCurrent() {
	if c.current == nil {
		return
	}
	if c.current.adapter != nil {
		c.current.adapter.Stop()
	}
	c.current = nil
}

// SetVolume applies a master amplitude in [0,1] to the current and all
// future sessions.
func (c *Coordinator) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	c.post(func() {
		c.volume = v
		if c.current != nil && c.current.adapter != nil {
			c.current.adapter.SetVolume(v)
		}
	})
}

// SelectBackend changes the preference. An active track is reloaded on
// the newly preferred back-end so the change takes effect immediately.
func (c *Coordinator) SelectBackend(pref Preference) {
	c.post(func() {
		c.pref = pref
		if c.current != nil && c.current.track != nil &&
			(c.state == StatePlaying || c.state == StatePaused || c.state == StateLoading) {
			c.startLoad(c.current.track)
		}
	})
}

// LoadSoundBank hands the bank to every ready back-end that consumes
// one.
func (c *Coordinator) LoadSoundBank(data []byte, name string) {
	c.post(func() {
		log := logger.GetLogger()
		for _, d := range c.registry.Snapshot() {
			if !d.Ready || !d.Caps.ConsumesSoundBank {
				continue
			}
			a := c.registry.Adapter(d.Kind)
			if err := a.LoadSoundBank(data, name); err != nil {
				log.Warn("sound bank rejected",
					"backend", d.Name, "bank", name, "error", err)
				continue
			}
			log.Info("sound bank loaded", "backend", d.Name, "bank", name)
		}
	})
}

// State reports the current playback state.
func (c *Coordinator) State() State {
	reply := make(chan State, 1)
	c.post(func() { reply <- c.state })
	select {
	case s := <-reply:
		return s
	case <-c.done:
		return StateIdle
	}
}

// Backends returns descriptor snapshots from the registry.
func (c *Coordinator) Backends() []Descriptor {
	return c.registry.Snapshot()
}

// onTick samples telemetry while a session is playing or paused; a
// paused session keeps reporting its held position.
func (c *Coordinator) onTick() {
	if (c.state != StatePlaying && c.state != StatePaused) || c.current == nil {
		return
	}
	s := c.current

	t, err := s.adapter.Sample()
	if err != nil {
		s.sampleFailures++
		if s.sampleFailures >= maxSampleFailures {
			c.dropCurrent()
			c.fail(ErrBackendInternal, err.Error())
		}
		return
	}
	s.sampleFailures = 0

	caps := s.adapter.Descriptor().Caps
	if t.Duration == 0 && !caps.ReportsDuration {
		t.Duration = s.duration
	}
	if t.CurrentTime == 0 && !caps.ReportsCurrentTime {
		elapsed := time.Since(s.startedAt) - s.pausedTotal
		if c.state == StatePaused {
			elapsed = s.pausedAt.Sub(s.startedAt) - s.pausedTotal
		}
		t.CurrentTime = elapsed.Seconds()
		if t.Duration > 0 && t.CurrentTime > t.Duration {
			t.CurrentTime = t.Duration
		}
	}
	if t.CurrentTime < s.lastTime {
		t.CurrentTime = s.lastTime
	}
	s.lastTime = t.CurrentTime

	c.observer.OnProgress(t)

	if c.state == StatePlaying && t.Duration > 0 && t.CurrentTime >= t.Duration-endEpsilon {
		c.setState(StateStopping)
		c.dropCurrent()
		c.observer.OnTrackEnd()
		c.setState(StateIdle)
	}
}
