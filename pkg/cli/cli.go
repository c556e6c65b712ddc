// Package cli parses command line arguments and environment variables
// into the player configuration.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings parsed from command line arguments.
type Config struct {
	Files         []string      // Track files to play, in order
	SoundFontPath string        // Default sound bank (.sf2) for the soundfont back-end
	Backend       string        // Preferred back-end ("auto", "tracker", "soundfont", "lite", "soundbank")
	Volume        float64       // Initial master volume in [0,1]
	Timeout       time.Duration // Total run time limit (0 is unlimited)
	LogLevel      string        // Log level (debug, info, warn, error)
	Headless      bool          // Run without an audio device
	ShowHelp      bool          // Help requested
}

// ParseArgs parses command line arguments into a Config.
// Flags may appear before or after the positional file arguments.
func ParseArgs(args []string) (*Config, error) {
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("fusionplayer", flag.ContinueOnError)

	config := &Config{}

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "run time limit in seconds")
	fs.IntVar(&timeoutSec, "t", 0, "run time limit in seconds (shorthand)")
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&config.LogLevel, "l", "info", "log level (shorthand)")
	fs.StringVar(&config.SoundFontPath, "soundfont", "", "path to a default SoundFont (.sf2)")
	fs.StringVar(&config.SoundFontPath, "s", "", "path to a default SoundFont (shorthand)")
	fs.StringVar(&config.Backend, "backend", "auto", "preferred back-end (auto, tracker, soundfont, lite, soundbank)")
	fs.StringVar(&config.Backend, "b", "auto", "preferred back-end (shorthand)")
	fs.Float64Var(&config.Volume, "volume", 1.0, "master volume (0.0 to 1.0)")
	fs.BoolVar(&config.Headless, "headless", false, "headless mode (no audio device)")
	fs.BoolVar(&config.ShowHelp, "help", false, "show help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show help (shorthand)")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// Environment variables apply when the corresponding flag is unset.
	if !config.Headless {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	if config.SoundFontPath == "" {
		config.SoundFontPath = os.Getenv("SOUNDFONT")
	}

	if config.Backend == "auto" {
		if backendEnv := os.Getenv("BACKEND"); backendEnv != "" {
			config.Backend = strings.ToLower(backendEnv)
		}
	}

	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	validBackends := map[string]bool{
		"auto":      true,
		"tracker":   true,
		"soundfont": true,
		"lite":      true,
		"soundbank": true,
	}
	if !validBackends[config.Backend] {
		return nil, fmt.Errorf("invalid backend: %s (must be auto, tracker, soundfont, lite, or soundbank)", config.Backend)
	}

	if config.Volume < 0 || config.Volume > 1 {
		return nil, fmt.Errorf("volume must be between 0.0 and 1.0, got %g", config.Volume)
	}

	if rest := fs.Args(); len(rest) > 0 {
		config.Files = rest
	}

	return config, nil
}

// reorderArgs moves flags in front of positional arguments so both
// orderings are accepted.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// Value-taking flags consume the next argument.
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				if arg != "-h" && arg != "--help" && arg != "--headless" {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp prints the usage message.
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `fusionplayer - tracker module and MIDI file player

Usage:
  fusionplayer [options] <file> [file...]

Arguments:
  file          Track files to play in order. Tracker modules
                (.mod .xm .s3m .it .mptm .stm .nst .ult .669) and
                Standard MIDI Files (.mid .midi .kar .rmi) are accepted.

Options:
  -s, --soundfont <path>      Default SoundFont (.sf2) for the soundfont back-end
  -b, --backend <name>        Preferred back-end: auto, tracker, soundfont, lite,
                              soundbank (default: auto)
  --volume <v>                Master volume 0.0 to 1.0 (default: 1.0)
  -t, --timeout <seconds>     Exit after the given number of seconds (default: unlimited)
  -l, --log-level <level>     Log level: debug, info, warn, error (default: info)
  --headless                  Headless mode (no audio device)
  -h, --help                  Show this help

Environment Variables:
  HEADLESS=1                  Enable headless mode
  TIMEOUT=<seconds>           Run time limit in seconds
  LOG_LEVEL=<level>           Log level
  SOUNDFONT=<path>            Default SoundFont path
  BACKEND=<name>              Preferred back-end

Examples:
  fusionplayer song.mid                        Play a MIDI file with the auto back-end
  fusionplayer -s bank.sf2 song.mid            Play through the soundfont back-end
  fusionplayer -b lite song.mid                Force the built-in lite synthesizer
  fusionplayer demo.mod song.mid               Play a playlist in order
  HEADLESS=1 fusionplayer --timeout 10 a.mod   Headless run with a 10 second limit
`)
}
