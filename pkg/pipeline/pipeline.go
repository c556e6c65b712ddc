// Package pipeline is the facade over the host sound output. Back-end
// adapters hand it PCM streams; the pipeline owns the shared output
// context and mixes all live voices.
package pipeline

import "io"

// SampleRate is the output sample rate shared by every back-end.
const SampleRate = 44100

// bytesPerSample is the frame size of pipeline streams: 16-bit stereo.
const bytesPerSample = 4

// Pipeline turns PCM streams into playing voices. Streams deliver
// interleaved 16-bit stereo little-endian samples at SampleRate.
type Pipeline interface {
	// NewVoice registers a stream with the output and returns its
	// transport handle. The voice starts paused.
	NewVoice(stream io.Reader) (Voice, error)

	// SampleRate returns the pipeline output rate in Hz.
	SampleRate() int
}

// Voice is the transport handle of one registered stream.
type Voice interface {
	Play()
	Pause()
	IsPlaying() bool

	// SetVolume applies a linear amplitude in [0,1].
	SetVolume(v float64)

	// Close releases the voice; the stream is no longer consumed.
	Close() error
}
