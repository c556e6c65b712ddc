package app

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultSoundFontName is the default SoundFont filename to search for.
const DefaultSoundFontName = "GeneralUser-GS.sf2"

// soundFontDirs are the conventional locations checked for a default
// bank, in priority order.
var soundFontDirs = []string{
	".",
	"soundfonts",
}

// findSoundFont searches the conventional locations for a usable .sf2
// file. The well-known default name wins over other banks in the same
// directory. Returns "" when nothing is found.
func findSoundFont() string {
	for _, dir := range soundFontDirs {
		named := filepath.Join(dir, DefaultSoundFontName)
		if fileExists(named) {
			return named
		}
	}
	for _, dir := range soundFontDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.EqualFold(filepath.Ext(entry.Name()), ".sf2") {
				return filepath.Join(dir, entry.Name())
			}
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
