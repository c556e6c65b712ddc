package pipeline

import (
	"io"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	// Ebitengine allows only one audio context per process.
	globalAudioContext *audio.Context
	audioContextMutex  sync.Mutex
)

func getAudioContext() *audio.Context {
	audioContextMutex.Lock()
	defer audioContextMutex.Unlock()

	if globalAudioContext == nil {
		globalAudioContext = audio.NewContext(SampleRate)
	}
	return globalAudioContext
}

// EbitenPipeline plays voices through the shared Ebitengine audio
// context. Multiple voices are mixed automatically by the context.
type EbitenPipeline struct {
	ctx *audio.Context
}

// NewEbiten returns the audio-device pipeline.
func NewEbiten() *EbitenPipeline {
	return &EbitenPipeline{ctx: getAudioContext()}
}

func (p *EbitenPipeline) SampleRate() int {
	return SampleRate
}

func (p *EbitenPipeline) NewVoice(stream io.Reader) (Voice, error) {
	player, err := p.ctx.NewPlayer(stream)
	if err != nil {
		return nil, err
	}
	return &ebitenVoice{player: player}, nil
}

type ebitenVoice struct {
	player *audio.Player
}

func (v *ebitenVoice) Play()               { v.player.Play() }
func (v *ebitenVoice) Pause()              { v.player.Pause() }
func (v *ebitenVoice) IsPlaying() bool     { return v.player.IsPlaying() }
func (v *ebitenVoice) SetVolume(s float64) { v.player.SetVolume(clampVolume(s)) }
func (v *ebitenVoice) Close() error        { return v.player.Close() }

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
