package player

import (
	"sync"

	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/litesynth"
	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/midi"
	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/pipeline"
)

// liteAdapter plays MIDI through the built-in square-wave synthesizer.
// It needs no sound bank, which makes it the fallback of last resort.
// Pause is emulated: the voice is torn down and the stream repositioned
// on resume, so playback continues where it left off.
type liteAdapter struct {
	mu     sync.Mutex
	desc   Descriptor
	pipe   pipeline.Pipeline
	doc    *midi.Document
	stream *litesynth.Stream
	voice  pipeline.Voice
	volume float64
	paused float64 // position captured at pause, seconds
}

func NewLiteAdapter(p pipeline.Pipeline) (Adapter, error) {
	return &liteAdapter{
		desc: Descriptor{
			Kind: BackendLite,
			Name: "lite",
			Caps: Capabilities{
				DecodesMIDI:        true,
				SupportsPause:      true,
				SupportsResume:     true,
				SupportsSeek:       true,
				ReportsDuration:    true,
				ReportsCurrentTime: true,
				ReportsVoices:      true,
			},
			VoiceLimit: 16,
		},
		pipe:   p,
		volume: 1.0,
	}, nil
}

func (a *liteAdapter) Descriptor() *Descriptor { return &a.desc }

func (a *liteAdapter) Load(track *Track) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()

	doc, err := midi.Parse(track.Data)
	if err != nil {
		return newError(ErrLoadFailure, err, "decode %s", track.Filename)
	}
	a.doc = doc
	return a.buildVoiceLocked(0)
}

func (a *liteAdapter) buildVoiceLocked(startAt float64) error {
	a.stream = litesynth.New(a.doc, a.pipe.SampleRate())
	if startAt > 0 {
		a.stream.SetTime(startAt)
	}
	voice, err := a.pipe.NewVoice(a.stream)
	if err != nil {
		a.stream = nil
		return newError(ErrBackendInternal, err, "lite: voice")
	}
	voice.SetVolume(a.volume)
	a.voice = voice
	return nil
}

func (a *liteAdapter) Play() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice == nil {
		return newError(ErrBackendInternal, nil, "lite: no file loaded")
	}
	a.voice.Play()
	return nil
}

func (a *liteAdapter) Pause() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice == nil {
		return false, newError(ErrBackendInternal, nil, "lite: no file loaded")
	}
	a.paused = a.stream.Position()
	a.voice.Close()
	a.voice = nil
	a.stream = nil
	return false, nil
}

func (a *liteAdapter) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice != nil {
		a.voice.Play()
		return nil
	}
	if a.doc == nil {
		return newError(ErrBackendInternal, nil, "lite: no file loaded")
	}
	if err := a.buildVoiceLocked(a.paused); err != nil {
		return err
	}
	a.voice.Play()
	return nil
}

func (a *liteAdapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

func (a *liteAdapter) releaseLocked() {
	if a.voice != nil {
		a.voice.Close()
	}
	a.voice = nil
	a.stream = nil
	a.doc = nil
	a.paused = 0
}

func (a *liteAdapter) SetVolume(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.volume = v
	if a.voice != nil {
		a.voice.SetVolume(v)
	}
}

func (a *liteAdapter) Sample() (Telemetry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.doc == nil {
		return Telemetry{}, newError(ErrBackendInternal, nil, "lite: no file loaded")
	}
	t := Telemetry{Duration: a.doc.Duration}
	if a.stream != nil {
		t.CurrentTime = a.stream.Position()
		t.Voices = a.stream.Voices()
	} else {
		t.CurrentTime = a.paused
	}
	return t, nil
}

func (a *liteAdapter) LoadSoundBank([]byte, string) error {
	return newError(ErrBackendInternal, nil, "lite: sound banks not supported")
}

func (a *liteAdapter) SoundBankLoaded() bool { return false }

func (a *liteAdapter) probe() error {
	_, err := midi.Parse(probeMIDIBytes())
	return err
}
