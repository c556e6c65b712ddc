package player

import "fmt"

// BackendKind identifies the back-end families.
type BackendKind int

const (
	BackendTracker BackendKind = iota
	BackendSoundFont
	BackendLite
	BackendSoundBank
)

func (k BackendKind) String() string {
	switch k {
	case BackendTracker:
		return "tracker"
	case BackendSoundFont:
		return "soundfont"
	case BackendLite:
		return "lite"
	case BackendSoundBank:
		return "soundbank"
	default:
		return fmt.Sprintf("BackendKind(%d)", int(k))
	}
}

// ParseBackendKind maps a back-end name to its kind.
func ParseBackendKind(name string) (BackendKind, bool) {
	switch name {
	case "tracker":
		return BackendTracker, true
	case "soundfont":
		return BackendSoundFont, true
	case "lite":
		return BackendLite, true
	case "soundbank":
		return BackendSoundBank, true
	default:
		return 0, false
	}
}

// Capabilities is the declared, probed property set of a back-end.
// Flags are filled in explicitly by the adapter author rather than
// duck-typed at call sites.
type Capabilities struct {
	DecodesTracker     bool
	DecodesMIDI        bool
	SupportsPause      bool // native pause; false means pause is emulated
	SupportsResume     bool
	SupportsSeek       bool
	ReportsDuration    bool
	ReportsCurrentTime bool
	ReportsVoices      bool
	ConsumesSoundBank  bool
}

// Descriptor describes one back-end to the registry and the selection
// policy. Ready transitions false to true at most once per process;
// a probe failure leaves it false with the reason in LastError.
type Descriptor struct {
	Kind BackendKind
	Name string
	Caps Capabilities

	// VoiceLimit is a per-back-end polyphony tunable reported through
	// telemetry when the back-end has no live voice count.
	VoiceLimit int

	Ready     bool
	LastError error
}

// Telemetry is the progress triplet sampled on a fixed cadence. Fields
// the back-end cannot report are zero.
type Telemetry struct {
	CurrentTime float64 // seconds into the track
	Duration    float64 // seconds, 0 when unknown
	Voices      int
}

// Adapter is the uniform transport and telemetry contract over one
// back-end. The coordinator only calls each method in the states the
// transport allows; adapters additionally guard their own state so a
// misuse fails loudly instead of corrupting the back-end.
type Adapter interface {
	Descriptor() *Descriptor

	// Load prepares a track for playback. The adapter must be idle.
	Load(track *Track) error

	// Play starts or restarts audio flowing into the host pipeline.
	Play() error

	// Pause halts playback. Back-ends without native pause emulate it
	// with stop plus a remembered position; resumeFromZero reports when
	// even that was impossible and Resume will restart the track.
	Pause() (resumeFromZero bool, err error)

	// Resume continues from the retained (or zero) position.
	Resume() error

	// Stop silences all channels and releases the session resources.
	// Permitted in any state.
	Stop()

	// SetVolume applies a linear master amplitude in [0,1].
	SetVolume(v float64)

	// Sample returns the current telemetry triplet. Only meaningful
	// while playing or paused.
	Sample() (Telemetry, error)

	// LoadSoundBank activates a sound bank for subsequent loads. Only
	// back-ends with ConsumesSoundBank accept it.
	LoadSoundBank(data []byte, name string) error

	// SoundBankLoaded reports whether a bank (default or explicit) is
	// active.
	SoundBankLoaded() bool
}
