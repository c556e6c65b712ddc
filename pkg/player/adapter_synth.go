package player

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/midi"
	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/pipeline"
)

// endTailSeconds keeps the synthesizer rendering a little past the last
// event so note releases are not cut off.
const endTailSeconds = 0.5

// synthAdapter plays Standard MIDI Files through the MeltySynth
// SoundFont synthesizer. It backs two registered back-ends: the
// general "soundfont" one, which may ship with a default bank, and the
// stricter "soundbank" one, which stays unusable until the user loads
// a bank and trades native pause for a restart-on-resume.
type synthAdapter struct {
	mu   sync.Mutex
	desc Descriptor
	pipe pipeline.Pipeline

	font     *meltysynth.SoundFont
	bankName string

	midiFile *meltysynth.MidiFile
	duration float64
	track    *Track
	stream   *synthStream
	voice    pipeline.Voice
	volume   float64
}

// NewSoundFontAdapter returns a factory for the soundfont back-end.
// defaultBank may be nil; the back-end then waits for LoadSoundBank.
func NewSoundFontAdapter(defaultBank []byte, bankName string) Factory {
	return func(p pipeline.Pipeline) (Adapter, error) {
		a := &synthAdapter{
			desc: Descriptor{
				Kind: BackendSoundFont,
				Name: "soundfont",
				Caps: Capabilities{
					DecodesMIDI:        true,
					SupportsPause:      true,
					SupportsResume:     true,
					ReportsDuration:    true,
					ReportsCurrentTime: true,
					ConsumesSoundBank:  true,
				},
				VoiceLimit: 64,
			},
			pipe:   p,
			volume: 1.0,
		}
		if len(defaultBank) > 0 {
			if err := a.LoadSoundBank(defaultBank, bankName); err != nil {
				return nil, err
			}
		}
		return a, nil
	}
}

// NewSoundBankAdapter constructs the soundbank back-end. It has no
// default bank and no native pause: pausing tears the voice down and
// resuming restarts the track from the top.
func NewSoundBankAdapter(p pipeline.Pipeline) (Adapter, error) {
	return &synthAdapter{
		desc: Descriptor{
			Kind: BackendSoundBank,
			Name: "soundbank",
			Caps: Capabilities{
				DecodesMIDI:       true,
				SupportsResume:    true,
				ConsumesSoundBank: true,
			},
			VoiceLimit: 32,
		},
		pipe:   p,
		volume: 1.0,
	}, nil
}

func (a *synthAdapter) Descriptor() *Descriptor { return &a.desc }

func (a *synthAdapter) Load(track *Track) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()

	if a.font == nil {
		return newError(ErrBackendInternal, nil, "%s: no sound bank loaded", a.desc.Name)
	}
	mf, err := meltysynth.NewMidiFile(bytes.NewReader(track.Data))
	if err != nil {
		return newError(ErrLoadFailure, err, "decode %s", track.Filename)
	}
	doc, err := midi.Parse(track.Data)
	if err != nil {
		return newError(ErrLoadFailure, err, "decode %s", track.Filename)
	}

	a.midiFile = mf
	a.duration = doc.Duration
	a.track = track
	return a.buildVoiceLocked()
}

// buildVoiceLocked spins up a fresh synthesizer, sequencer and pipeline
// voice for the loaded file. Also used by Resume after an emulated
// pause.
func (a *synthAdapter) buildVoiceLocked() error {
	settings := meltysynth.NewSynthesizerSettings(int32(a.pipe.SampleRate()))
	synth, err := meltysynth.NewSynthesizer(a.font, settings)
	if err != nil {
		return newError(ErrBackendInternal, err, "%s: synthesizer", a.desc.Name)
	}
	seq := meltysynth.NewMidiFileSequencer(synth)
	seq.Play(a.midiFile, false)

	a.stream = &synthStream{
		sequencer:  seq,
		sampleRate: a.pipe.SampleRate(),
		endAt:      a.duration + endTailSeconds,
	}
	voice, err := a.pipe.NewVoice(a.stream)
	if err != nil {
		a.stream = nil
		return newError(ErrBackendInternal, err, "%s: voice", a.desc.Name)
	}
	voice.SetVolume(a.volume)
	a.voice = voice
	return nil
}

func (a *synthAdapter) Play() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice == nil {
		return newError(ErrBackendInternal, nil, "%s: no file loaded", a.desc.Name)
	}
	a.voice.Play()
	return nil
}

func (a *synthAdapter) Pause() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice == nil {
		return false, newError(ErrBackendInternal, nil, "%s: no file loaded", a.desc.Name)
	}
	if a.desc.Caps.SupportsPause {
		a.voice.Pause()
		return false, nil
	}
	// No native pause. Drop the voice; Resume rebuilds it and the
	// track restarts from the beginning.
	a.voice.Close()
	a.voice = nil
	a.stream = nil
	return true, nil
}

func (a *synthAdapter) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice != nil {
		a.voice.Play()
		return nil
	}
	if a.midiFile == nil {
		return newError(ErrBackendInternal, nil, "%s: no file loaded", a.desc.Name)
	}
	if err := a.buildVoiceLocked(); err != nil {
		return err
	}
	a.voice.Play()
	return nil
}

// Stop tears down the voice and drops the sequencer. The synthesizer
// is not sent an all-notes-off; nothing renders its ring-out once the
// voice is closed, so any held notes die with the session.
func (a *synthAdapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

func (a *synthAdapter) releaseLocked() {
	if a.voice != nil {
		a.voice.Close()
	}
	a.voice = nil
	a.stream = nil
	a.midiFile = nil
	a.track = nil
	a.duration = 0
}

func (a *synthAdapter) SetVolume(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.volume = v
	if a.voice != nil {
		a.voice.SetVolume(v)
	}
}

func (a *synthAdapter) Sample() (Telemetry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.midiFile == nil {
		return Telemetry{}, newError(ErrBackendInternal, nil, "%s: no file loaded", a.desc.Name)
	}
	t := Telemetry{}
	if a.desc.Caps.ReportsDuration {
		t.Duration = a.duration
	}
	if a.desc.Caps.ReportsCurrentTime && a.stream != nil {
		t.CurrentTime = a.stream.position()
		if t.Duration > 0 && t.CurrentTime > t.Duration {
			t.CurrentTime = t.Duration
		}
	}
	return t, nil
}

func (a *synthAdapter) LoadSoundBank(data []byte, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	font, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return newError(ErrLoadFailure, err, "parse sound bank %s", name)
	}
	a.font = font
	a.bankName = name
	return nil
}

func (a *synthAdapter) SoundBankLoaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.font != nil
}

func (a *synthAdapter) probe() error {
	_, err := meltysynth.NewMidiFile(bytes.NewReader(probeMIDIBytes()))
	return err
}

// synthStream renders the sequencer into 16-bit stereo little-endian
// PCM the way the host pipeline expects it.
type synthStream struct {
	mu         sync.Mutex
	sequencer  *meltysynth.MidiFileSequencer
	sampleRate int
	endAt      float64
	frames     int64
}

func (s *synthStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(p) / 4
	if count == 0 {
		return 0, nil
	}
	if float64(s.frames)/float64(s.sampleRate) >= s.endAt {
		return 0, io.EOF
	}

	left := make([]float32, count)
	right := make([]float32, count)
	s.sequencer.Render(left, right)

	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint16(p[i*4:], uint16(int16(left[i]*32767)))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(int16(right[i]*32767)))
	}
	s.frames += int64(count)
	return count * 4, nil
}

func (s *synthStream) position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.frames) / float64(s.sampleRate)
}
