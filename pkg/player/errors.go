package player

import "fmt"

// ErrorKind enumerates the error conditions surfaced to observers.
type ErrorKind int

const (
	// ErrNoBackendAvailable means selection produced no ready adapter
	// for the track's kind.
	ErrNoBackendAvailable ErrorKind = iota

	// ErrLoadFailure means an adapter rejected the track bytes.
	ErrLoadFailure

	// ErrUnsupportedFileType means the file extension is not accepted.
	ErrUnsupportedFileType

	// ErrPreferenceIgnored is a warning: the user-selected back-end was
	// not ready and auto selection was used instead.
	ErrPreferenceIgnored

	// ErrBackendInternal means a back-end failed mid-session; the
	// session was stopped.
	ErrBackendInternal

	// ErrNoTrackSelected means play was requested with nothing loaded.
	ErrNoTrackSelected
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNoBackendAvailable:
		return "NoBackendAvailable"
	case ErrLoadFailure:
		return "LoadFailure"
	case ErrUnsupportedFileType:
		return "UnsupportedFileType"
	case ErrPreferenceIgnored:
		return "PreferenceIgnored"
	case ErrBackendInternal:
		return "BackendInternal"
	case ErrNoTrackSelected:
		return "NoTrackSelected"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a structured playback error carrying its kind across the
// observer boundary. Parse failures that occur during a play attempt are
// wrapped as ErrLoadFailure with the underlying cause attached.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}
