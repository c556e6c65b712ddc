// Package player implements the playback core: the track model, the
// back-end registry and capability probing, the selection policy, the
// uniform adapter layer over the synthesis back-ends, and the playback
// coordinator driving one session at a time.
package player

import (
	"path/filepath"
	"strings"
)

// TrackKind classifies a track by file family.
type TrackKind int

const (
	KindUnknown TrackKind = iota
	KindTracker
	KindMIDI
)

func (k TrackKind) String() string {
	switch k {
	case KindTracker:
		return "tracker"
	case KindMIDI:
		return "midi"
	default:
		return "unknown"
	}
}

// File kind detection is extension based.
var (
	trackerExtensions = map[string]bool{
		".mod": true, ".xm": true, ".s3m": true, ".it": true,
		".mptm": true, ".stm": true, ".nst": true, ".ult": true,
		".669": true,
	}
	midiExtensions = map[string]bool{
		".mid": true, ".midi": true, ".kar": true, ".rmi": true,
	}
)

// DetectKind classifies a filename by its extension.
func DetectKind(filename string) TrackKind {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case trackerExtensions[ext]:
		return KindTracker
	case midiExtensions[ext]:
		return KindMIDI
	default:
		return KindUnknown
	}
}

// Track is one playable file. It is a value object constructed by the
// embedding host and handed to the coordinator per play request.
type Track struct {
	Filename string
	Kind     TrackKind
	Data     []byte
	Title    string // optional display metadata
}

// NewTrack builds a track from a filename and its bytes, rejecting
// unsupported extensions.
func NewTrack(filename string, data []byte) (*Track, error) {
	kind := DetectKind(filename)
	if kind == KindUnknown {
		return nil, newError(ErrUnsupportedFileType, nil, "unsupported file type: %s", filename)
	}
	return &Track{Filename: filename, Kind: kind, Data: data}, nil
}
