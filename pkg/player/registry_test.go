package player

import (
	"errors"
	"testing"

	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/pipeline"
)

// probingAdapter wraps a fake with a scripted probe result sequence.
type probingAdapter struct {
	*fakeAdapter
	results []error
	calls   int
}

func (p *probingAdapter) probe() error {
	if p.calls >= len(p.results) {
		return nil
	}
	err := p.results[p.calls]
	p.calls++
	return err
}

func TestRegistryProbeMarksReady(t *testing.T) {
	defer quickProbe(t)()

	tracker := newFakeAdapter(BackendTracker, trackerCaps())
	reg := NewRegistry(nil)
	reg.Register(BackendTracker, tracker.factory())

	if tracker.desc.Ready {
		t.Fatal("ready before probe")
	}
	reg.Probe()
	if !tracker.desc.Ready {
		t.Fatal("not ready after probe")
	}
}

func TestRegistryProbeRetries(t *testing.T) {
	oldAttempts, oldInterval := probeAttempts, probeInterval
	probeAttempts, probeInterval = 3, 0
	defer func() { probeAttempts, probeInterval = oldAttempts, oldInterval }()

	flaky := &probingAdapter{
		fakeAdapter: newFakeAdapter(BackendSoundFont, midiCaps()),
		results:     []error{errors.New("engine warming up"), errors.New("still warming")},
	}
	reg := NewRegistry(nil)
	reg.Register(BackendSoundFont, func(pipeline.Pipeline) (Adapter, error) { return flaky, nil })
	reg.Probe()

	if !flaky.desc.Ready {
		t.Error("back-end should become ready once the probe passes")
	}
	if flaky.calls != 2 {
		t.Errorf("probe calls = %d, want 2 failures before success", flaky.calls)
	}
}

func TestRegistryProbeGivesUp(t *testing.T) {
	oldAttempts, oldInterval := probeAttempts, probeInterval
	probeAttempts, probeInterval = 2, 0
	defer func() { probeAttempts, probeInterval = oldAttempts, oldInterval }()

	dead := &probingAdapter{
		fakeAdapter: newFakeAdapter(BackendSoundFont, midiCaps()),
		results:     []error{errors.New("no engine"), errors.New("no engine"), errors.New("no engine")},
	}
	reg := NewRegistry(nil)
	reg.Register(BackendSoundFont, func(pipeline.Pipeline) (Adapter, error) { return dead, nil })
	reg.Probe()

	if dead.desc.Ready {
		t.Error("back-end must stay unavailable after exhausted probes")
	}
	if dead.desc.LastError == nil {
		t.Error("last probe error should be recorded")
	}
}

func TestRegistryFactoryFailure(t *testing.T) {
	defer quickProbe(t)()

	reg := NewRegistry(nil)
	reg.Register(BackendSoundFont, func(pipeline.Pipeline) (Adapter, error) {
		return nil, errors.New("construction failed")
	})
	reg.Probe()

	snap := reg.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot length = %d", len(snap))
	}
	if snap[0].Ready {
		t.Error("broken back-end reported ready")
	}
	if snap[0].LastError == nil {
		t.Error("construction error not recorded")
	}

	// The stand-in adapter fails every operation.
	a := reg.Adapter(BackendSoundFont)
	if err := a.Play(); err == nil {
		t.Error("expected error from broken adapter")
	}
}

func TestRegistrySnapshotOrder(t *testing.T) {
	defer quickProbe(t)()

	reg := NewRegistry(nil)
	reg.Register(BackendLite, newFakeAdapter(BackendLite, midiCaps()).factory())
	reg.Register(BackendTracker, newFakeAdapter(BackendTracker, trackerCaps()).factory())
	reg.Probe()

	snap := reg.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot length = %d", len(snap))
	}
	if snap[0].Kind != BackendTracker || snap[1].Kind != BackendLite {
		t.Errorf("snapshot order = %v, %v", snap[0].Kind, snap[1].Kind)
	}
}
