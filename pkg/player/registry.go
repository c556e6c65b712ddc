package player

import (
	"sort"
	"sync"
	"time"

	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/logger"
	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/pipeline"
)

var (
	probeAttempts = 10
	probeInterval = 500 * time.Millisecond
)

// Factory constructs an adapter bound to the host audio pipeline.
type Factory func(p pipeline.Pipeline) (Adapter, error)

// Registry holds the known back-ends and their probe results. Probing
// runs once at startup; afterwards the registry is effectively
// read-only and safe for concurrent snapshots.
type Registry struct {
	mu       sync.Mutex
	pipe     pipeline.Pipeline
	order    []BackendKind
	adapters map[BackendKind]Adapter
}

func NewRegistry(p pipeline.Pipeline) *Registry {
	return &Registry{
		pipe:     p,
		adapters: make(map[BackendKind]Adapter),
	}
}

// Register constructs the adapter for kind and adds it unprobed. A
// construction error records a never-ready descriptor so the failure
// still shows up in snapshots.
func (r *Registry) Register(kind BackendKind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := f(r.pipe)
	if err != nil {
		logger.GetLogger().Warn("backend construction failed",
			"backend", kind.String(), "error", err)
		a = &brokenAdapter{desc: Descriptor{
			Kind:      kind,
			Name:      kind.String(),
			LastError: err,
		}}
	}
	if _, dup := r.adapters[kind]; !dup {
		r.order = append(r.order, kind)
	}
	r.adapters[kind] = a
}

// Probe exercises every registered back-end with a synthetic fixture
// until it proves it can decode, with a bounded retry for back-ends
// whose engines need a moment to come up. Back-ends that never pass
// stay unavailable for the rest of the process.
func (r *Registry) Probe() {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := logger.GetLogger()
	pending := make(map[BackendKind]bool)
	for _, kind := range r.order {
		if r.adapters[kind].Descriptor().LastError == nil {
			pending[kind] = true
		}
	}

	for attempt := 1; attempt <= probeAttempts && len(pending) > 0; attempt++ {
		if attempt > 1 {
			time.Sleep(probeInterval)
		}
		for kind := range pending {
			a := r.adapters[kind]
			if err := probeAdapter(a); err != nil {
				a.Descriptor().LastError = err
				log.Debug("backend probe failed",
					"backend", kind.String(), "attempt", attempt, "error", err)
				continue
			}
			d := a.Descriptor()
			d.Ready = true
			d.LastError = nil
			delete(pending, kind)
			log.Info("backend ready", "backend", kind.String())
		}
	}
	for kind := range pending {
		d := r.adapters[kind].Descriptor()
		log.Warn("backend unavailable",
			"backend", kind.String(), "error", d.LastError)
	}
}

// Adapter returns the adapter for kind, or nil when unregistered.
func (r *Registry) Adapter(kind BackendKind) Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adapters[kind]
}

// Snapshot returns descriptor copies in registration order.
func (r *Registry) Snapshot() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, kind := range r.order {
		out = append(out, *r.adapters[kind].Descriptor())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// brokenAdapter stands in for a back-end whose factory failed so the
// registry can still report it.
type brokenAdapter struct {
	desc Descriptor
}

func (b *brokenAdapter) Descriptor() *Descriptor { return &b.desc }

func (b *brokenAdapter) Load(*Track) error {
	return newError(ErrBackendInternal, b.desc.LastError, "backend %s unavailable", b.desc.Name)
}

func (b *brokenAdapter) Play() error {
	return newError(ErrBackendInternal, b.desc.LastError, "backend %s unavailable", b.desc.Name)
}

func (b *brokenAdapter) Pause() (bool, error) {
	return false, newError(ErrBackendInternal, b.desc.LastError, "backend %s unavailable", b.desc.Name)
}

func (b *brokenAdapter) Resume() error {
	return newError(ErrBackendInternal, b.desc.LastError, "backend %s unavailable", b.desc.Name)
}

func (b *brokenAdapter) Stop()             {}
func (b *brokenAdapter) SetVolume(float64) {}

func (b *brokenAdapter) Sample() (Telemetry, error) {
	return Telemetry{}, newError(ErrBackendInternal, b.desc.LastError, "backend %s unavailable", b.desc.Name)
}

func (b *brokenAdapter) LoadSoundBank([]byte, string) error {
	return newError(ErrBackendInternal, b.desc.LastError, "backend %s unavailable", b.desc.Name)
}

func (b *brokenAdapter) SoundBankLoaded() bool { return false }
