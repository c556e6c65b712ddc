// Package app wires the command line, audio pipeline, back-end
// registry and playback coordinator into the runnable player.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/cli"
	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/logger"
	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/pipeline"
	"github.com/SomeShr1mp/FusionPlayer-sub000/pkg/player"
)

// Application manages the player's main logic.
type Application struct {
	config   *cli.Config
	log      *slog.Logger
	registry *player.Registry
	coord    *player.Coordinator
	events   *playbackEvents
}

// New creates an Application.
func New() *Application {
	return &Application{}
}

// Run executes the player: parse arguments, bring up the audio stack,
// probe the back-ends and play the requested files in order.
func (app *Application) Run(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	app.config = config

	if app.config.ShowHelp {
		cli.PrintHelp()
		return nil
	}
	if len(app.config.Files) == 0 {
		cli.PrintHelp()
		return fmt.Errorf("no files given")
	}

	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log = logger.GetLogger()
	app.log.Info("Player started", "files", len(app.config.Files), "headless", app.config.Headless)

	pipe := app.buildPipeline()

	if err := app.buildRegistry(pipe); err != nil {
		return fmt.Errorf("failed to set up back-ends: %w", err)
	}

	app.events = newPlaybackEvents(app.log)
	app.coord = player.NewCoordinator(app.registry, app.events)
	defer app.coord.Close()

	app.coord.SetVolume(app.config.Volume)
	if pref, ok := app.backendPreference(); ok {
		app.coord.SelectBackend(pref)
	}

	return app.playAll()
}

func (app *Application) buildPipeline() pipeline.Pipeline {
	if app.config.Headless {
		app.log.Info("Headless mode: no audio device")
		return pipeline.NewHeadless()
	}
	return pipeline.NewEbiten()
}

// buildRegistry registers the four back-ends and probes them. The
// soundfont back-end gets the default bank when one can be found.
func (app *Application) buildRegistry(pipe pipeline.Pipeline) error {
	bankData, bankName := app.loadDefaultSoundFont()

	app.registry = player.NewRegistry(pipe)
	app.registry.Register(player.BackendTracker, player.NewTrackerAdapter)
	app.registry.Register(player.BackendSoundFont, player.NewSoundFontAdapter(bankData, bankName))
	app.registry.Register(player.BackendSoundBank, player.NewSoundBankAdapter)
	app.registry.Register(player.BackendLite, player.NewLiteAdapter)
	app.registry.Probe()

	for _, d := range app.registry.Snapshot() {
		if d.Ready {
			app.log.Info("Back-end available", "backend", d.Name, "voices", d.VoiceLimit)
		} else {
			app.log.Warn("Back-end unavailable", "backend", d.Name, "error", d.LastError)
		}
	}
	return nil
}

// loadDefaultSoundFont resolves the default bank: an explicit path
// wins, then the conventional search locations.
func (app *Application) loadDefaultSoundFont() ([]byte, string) {
	path := app.config.SoundFontPath
	if path == "" {
		path = findSoundFont()
	}
	if path == "" {
		app.log.Info("No default SoundFont; MIDI falls back to the built-in synthesizer")
		return nil, ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		app.log.Warn("Failed to read SoundFont", "path", path, "error", err)
		return nil, ""
	}
	app.log.Info("Loaded SoundFont", "path", path, "size", len(data))
	return data, path
}

func (app *Application) backendPreference() (player.Preference, bool) {
	name := app.config.Backend
	if name == "" || name == "auto" {
		return player.AutoPreference(), false
	}
	kind, ok := player.ParseBackendKind(name)
	if !ok {
		app.log.Warn("Unknown back-end name, using auto selection", "backend", name)
		return player.AutoPreference(), false
	}
	return player.PreferBackend(kind), true
}

// playAll plays the configured files sequentially. A per-file failure
// is logged and playback moves on; the run-time limit ends the whole
// playlist.
func (app *Application) playAll() error {
	var deadline <-chan time.Time
	if app.config.Timeout > 0 {
		deadline = time.After(app.config.Timeout)
	}

	for _, filename := range app.config.Files {
		data, err := os.ReadFile(filename)
		if err != nil {
			app.log.Error("Cannot read file", "file", filename, "error", err)
			continue
		}
		track, err := player.NewTrack(filename, data)
		if err != nil {
			app.log.Error("Unsupported file", "file", filename, "error", err)
			continue
		}

		finished, failed := app.events.reset()
		app.coord.Load(track)

		select {
		case <-finished:
			app.log.Info("Track finished", "file", filename)
		case kind := <-failed:
			app.log.Error("Track failed", "file", filename, "kind", kind.String())
		case <-deadline:
			app.log.Info("Run time limit reached")
			app.coord.Stop()
			return nil
		}
	}

	app.log.Info("Playlist complete")
	return nil
}

// playbackEvents adapts coordinator callbacks to the playlist loop and
// the log.
type playbackEvents struct {
	log *slog.Logger

	mu       sync.Mutex
	finished chan struct{}
	failed   chan player.ErrorKind

	lastLogged time.Time
}

func newPlaybackEvents(log *slog.Logger) *playbackEvents {
	e := &playbackEvents{log: log}
	e.reset()
	return e
}

// reset arms fresh completion channels for the next track.
func (e *playbackEvents) reset() (<-chan struct{}, <-chan player.ErrorKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finished = make(chan struct{}, 1)
	e.failed = make(chan player.ErrorKind, 1)
	return e.finished, e.failed
}

func (e *playbackEvents) OnStateChange(s player.State, id player.SessionID) {
	e.log.Debug("State changed", "state", s.String(), "session", id)
}

func (e *playbackEvents) OnProgress(t player.Telemetry) {
	// Progress arrives on a fast cadence; log it once a second.
	if time.Since(e.lastLogged) < time.Second {
		return
	}
	e.lastLogged = time.Now()
	if t.Duration > 0 {
		e.log.Info("Progress",
			"position", fmt.Sprintf("%.1fs", t.CurrentTime),
			"duration", fmt.Sprintf("%.1fs", t.Duration),
			"voices", t.Voices)
	} else {
		e.log.Info("Progress",
			"position", fmt.Sprintf("%.1fs", t.CurrentTime),
			"voices", t.Voices)
	}
}

func (e *playbackEvents) OnTrackEnd() {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case e.finished <- struct{}{}:
	default:
	}
}

func (e *playbackEvents) OnError(kind player.ErrorKind, message string) {
	if kind == player.ErrPreferenceIgnored {
		e.log.Warn("Back-end preference ignored", "message", message)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case e.failed <- kind:
	default:
	}
}
