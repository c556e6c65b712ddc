package player

import "github.com/SomeShr1mp/FusionPlayer-sub000/pkg/logger"

// Preference is the user's back-end wish. Auto lets the policy pick.
type Preference struct {
	Auto bool
	Kind BackendKind
}

// AutoPreference selects automatically.
func AutoPreference() Preference { return Preference{Auto: true} }

// PreferBackend requests a specific back-end.
func PreferBackend(kind BackendKind) Preference { return Preference{Kind: kind} }

// selectBackend picks an adapter for a track. A specific preference is
// honored when that back-end is ready and capable of the track's kind;
// otherwise ignored reports true and automatic rules apply so the
// caller can surface the dropped preference as a warning. Returns a
// *Error with ErrNoBackendAvailable when nothing fits.
func selectBackend(reg *Registry, track *Track, pref Preference) (a Adapter, ignored bool, err error) {
	if !pref.Auto {
		if a := reg.Adapter(pref.Kind); a != nil {
			d := a.Descriptor()
			if d.Ready && capableOf(d.Caps, track.Kind) && usable(a, track.Kind) {
				return a, false, nil
			}
		}
		logger.GetLogger().Warn("backend preference ignored",
			"backend", pref.Kind.String(), "file", track.Filename)
		ignored = true
	}
	a, err = selectAuto(reg, track)
	return a, ignored, err
}

func selectAuto(reg *Registry, track *Track) (Adapter, error) {
	switch track.Kind {
	case KindTracker:
		if a := readyAdapter(reg, BackendTracker); a != nil {
			return a, nil
		}
	case KindMIDI:
		// SoundFont synthesis first, then the bank-only synthesizer,
		// then the built-in lite fallback.
		for _, kind := range []BackendKind{BackendSoundFont, BackendSoundBank, BackendLite} {
			a := readyAdapter(reg, kind)
			if a == nil {
				continue
			}
			if usable(a, KindMIDI) {
				return a, nil
			}
		}
	}
	return nil, newError(ErrNoBackendAvailable, nil,
		"no back-end can play %s (%s)", track.Filename, track.Kind)
}

func readyAdapter(reg *Registry, kind BackendKind) Adapter {
	a := reg.Adapter(kind)
	if a == nil {
		return nil
	}
	if !a.Descriptor().Ready {
		return nil
	}
	return a
}

func capableOf(caps Capabilities, kind TrackKind) bool {
	switch kind {
	case KindTracker:
		return caps.DecodesTracker
	case KindMIDI:
		return caps.DecodesMIDI
	default:
		return false
	}
}

// usable layers the sound-bank requirement on top of raw capability: a
// synthesizer that needs a bank is not usable for MIDI until one is
// loaded.
func usable(a Adapter, kind TrackKind) bool {
	d := a.Descriptor()
	if !capableOf(d.Caps, kind) {
		return false
	}
	if kind == KindMIDI && d.Caps.ConsumesSoundBank && !a.SoundBankLoaded() {
		return false
	}
	return true
}
