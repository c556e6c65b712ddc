package pipeline

import (
	"io"
	"sync"
	"time"
)

// HeadlessPipeline consumes voice streams without an audio device. Each
// playing voice is pumped at the real-time byte rate into a discard
// buffer so stream-driven telemetry and end detection behave the same as
// with audible output.
type HeadlessPipeline struct {
	rate int
}

// NewHeadless returns a silent pipeline running at SampleRate.
func NewHeadless() *HeadlessPipeline {
	return &HeadlessPipeline{rate: SampleRate}
}

func (p *HeadlessPipeline) SampleRate() int {
	return p.rate
}

func (p *HeadlessPipeline) NewVoice(stream io.Reader) (Voice, error) {
	v := &headlessVoice{
		stream: stream,
		rate:   p.rate,
		closed: make(chan struct{}),
	}
	go v.pump()
	return v, nil
}

type headlessVoice struct {
	stream io.Reader
	rate   int

	mu      sync.Mutex
	playing bool
	done    bool
	closed  chan struct{}
}

func (v *headlessVoice) Play() {
	v.mu.Lock()
	if !v.done {
		v.playing = true
	}
	v.mu.Unlock()
}

func (v *headlessVoice) Pause() {
	v.mu.Lock()
	v.playing = false
	v.mu.Unlock()
}

func (v *headlessVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *headlessVoice) SetVolume(float64) {}

func (v *headlessVoice) Close() error {
	v.mu.Lock()
	if !v.done {
		v.done = true
		v.playing = false
		close(v.closed)
	}
	v.mu.Unlock()
	return nil
}

// pump drains the stream in small slices, sleeping each slice's
// real-time length, until the stream ends or the voice is closed.
func (v *headlessVoice) pump() {
	const sliceSamples = 512
	buf := make([]byte, sliceSamples*bytesPerSample)
	sliceDuration := time.Duration(sliceSamples) * time.Second / time.Duration(v.rate)

	for {
		select {
		case <-v.closed:
			return
		default:
		}

		if !v.IsPlaying() {
			select {
			case <-v.closed:
				return
			case <-time.After(time.Millisecond):
			}
			continue
		}

		start := time.Now()
		if _, err := io.ReadFull(v.stream, buf); err != nil {
			v.mu.Lock()
			v.playing = false
			v.mu.Unlock()
			return
		}

		if sleep := sliceDuration - time.Since(start); sleep > 0 {
			select {
			case <-v.closed:
				return
			case <-time.After(sleep):
			}
		}
	}
}
