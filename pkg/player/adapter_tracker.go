package player

import (
	"encoding/binary"
	"io"
	"strings"
	"sync"

	"github.com/chriskillpack/modplayer"

	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/pipeline"
)

// trackerAdapter plays MOD family modules through the modplayer mixer.
// The mixer renders into an int16 pull buffer which trackerStream
// repackages as the little-endian PCM byte stream the pipeline wants.
type trackerAdapter struct {
	mu     sync.Mutex
	desc   Descriptor
	pipe   pipeline.Pipeline
	stream *trackerStream
	voice  pipeline.Voice
}

func NewTrackerAdapter(p pipeline.Pipeline) (Adapter, error) {
	return &trackerAdapter{
		desc: Descriptor{
			Kind: BackendTracker,
			Name: "tracker",
			Caps: Capabilities{
				DecodesTracker:     true,
				SupportsPause:      true,
				SupportsResume:     true,
				ReportsDuration:    true,
				ReportsCurrentTime: true,
				ReportsVoices:      true,
			},
			VoiceLimit: 32,
		},
		pipe: p,
	}, nil
}

func (a *trackerAdapter) Descriptor() *Descriptor { return &a.desc }

func (a *trackerAdapter) Load(track *Track) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()

	song, err := modplayer.NewSongFromBytes(track.Data)
	if err != nil {
		return newError(ErrLoadFailure, err, "decode %s", track.Filename)
	}
	// NewPlayer starts the mixer, hold it until Play.
	mixer := modplayer.NewPlayer(song, uint(a.pipe.SampleRate()))
	mixer.Stop()

	a.stream = &trackerStream{
		mixer:      mixer,
		sampleRate: a.pipe.SampleRate(),
		duration:   estimateModDuration(song),
	}
	voice, err := a.pipe.NewVoice(a.stream)
	if err != nil {
		a.stream = nil
		return newError(ErrBackendInternal, err, "voice for %s", track.Filename)
	}
	a.voice = voice
	if track.Title == "" {
		track.Title = strings.TrimRight(song.Title, "\x00")
	}
	return nil
}

func (a *trackerAdapter) Play() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice == nil {
		return newError(ErrBackendInternal, nil, "tracker: no module loaded")
	}
	a.stream.mixer.Start()
	a.voice.Play()
	return nil
}

func (a *trackerAdapter) Pause() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice == nil {
		return false, newError(ErrBackendInternal, nil, "tracker: no module loaded")
	}
	a.voice.Pause()
	return false, nil
}

func (a *trackerAdapter) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice == nil {
		return newError(ErrBackendInternal, nil, "tracker: no module loaded")
	}
	a.voice.Play()
	return nil
}

func (a *trackerAdapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

func (a *trackerAdapter) releaseLocked() {
	if a.stream != nil {
		a.stream.mixer.Stop()
	}
	if a.voice != nil {
		a.voice.Close()
	}
	a.stream = nil
	a.voice = nil
}

func (a *trackerAdapter) SetVolume(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice != nil {
		a.voice.SetVolume(v)
	}
}

func (a *trackerAdapter) Sample() (Telemetry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stream == nil {
		return Telemetry{}, newError(ErrBackendInternal, nil, "tracker: no module loaded")
	}
	return Telemetry{
		CurrentTime: a.stream.position(),
		Duration:    a.stream.duration,
		Voices:      a.stream.mixer.Song.Channels,
	}, nil
}

func (a *trackerAdapter) LoadSoundBank([]byte, string) error {
	return newError(ErrBackendInternal, nil, "tracker: sound banks not supported")
}

func (a *trackerAdapter) SoundBankLoaded() bool { return false }

func (a *trackerAdapter) probe() error {
	_, err := modplayer.NewSongFromBytes(probeModBytes())
	return err
}

// estimateModDuration approximates play time from the order list. Each
// order is 64 rows, a row lasts speed ticks and a tick lasts 2.5/tempo
// seconds. Pattern jumps and loops make the real figure diverge, which
// is acceptable for progress display.
func estimateModDuration(song *modplayer.Song) float64 {
	tempo := song.Tempo
	if tempo == 0 {
		tempo = 125
	}
	speed := song.Speed
	if speed == 0 {
		speed = 6
	}
	rows := float64(len(song.Orders) * 64)
	return rows * float64(speed) * 2.5 / float64(tempo)
}

// trackerStream adapts the mixer's int16 pull API to io.Reader. When
// the mixer is started but produces no samples the song is over; when
// it is stopped the stream pads silence so the voice stays open across
// a pause.
type trackerStream struct {
	mu         sync.Mutex
	mixer      *modplayer.Player
	sampleRate int
	duration   float64
	frames     int64 // stereo frames handed to the pipeline
	finished   bool
}

func (s *trackerStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return 0, io.EOF
	}
	if len(p) < 4 {
		return 0, nil
	}
	n := len(p) / 4 // bytes per stereo frame
	buf := make([]int16, n*2)

	if !s.mixer.IsPlaying() {
		// Paused. Emit silence without advancing the song.
		for i := range p[:n*4] {
			p[i] = 0
		}
		return n * 4, nil
	}

	got := s.mixer.GenerateAudio(buf)
	if got == 0 {
		s.finished = true
		return 0, io.EOF
	}
	for i := 0; i < got*2; i++ {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(buf[i]))
	}
	s.frames += int64(got)
	return got * 4, nil
}

func (s *trackerStream) position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.frames) / float64(s.sampleRate)
}
