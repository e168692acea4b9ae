// Package models manages the local store of whisper ggml model artifacts.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultModel = "base"

// Model describes a downloadable whisper.cpp artifact. SHA256 digests are
// recorded for reference; integrity checks are size-based (see Verify).
type Model struct {
	Name        string
	FileName    string
	URL         string
	SHA256      string
	SizeMB      int64
	Description string
}

var registry = map[string]Model{
	"tiny": {
		Name:        "tiny",
		FileName:    "ggml-tiny.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
		SHA256:      "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21",
		SizeMB:      39,
		Description: "Fastest, lowest accuracy",
	},
	"base": {
		Name:        "base",
		FileName:    "ggml-base.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		SHA256:      "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe",
		SizeMB:      142,
		Description: "Good balance of speed and accuracy",
	},
	"small": {
		Name:        "small",
		FileName:    "ggml-small.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
		SHA256:      "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b",
		SizeMB:      466,
		Description: "Better accuracy, slower",
	},
	"medium": {
		Name:        "medium",
		FileName:    "ggml-medium.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
		SHA256:      "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208",
		SizeMB:      1540,
		Description: "High accuracy, requires more memory",
	},
	"large-v3": {
		Name:        "large-v3",
		FileName:    "ggml-large-v3.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin",
		SHA256:      "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2",
		SizeMB:      3100,
		Description: "Highest accuracy, slowest",
	},
}

// preferredOrder ranks models for BestInstalled, most capable first.
var preferredOrder = []string{"large-v3", "medium", "small", "base", "tiny"}

var ErrUnknownModel = errors.New("unknown model")

// Names returns all registry model names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registry entry for name.
func Lookup(name string) (Model, bool) {
	model, ok := registry[name]
	return model, ok
}

// Store is a directory of ggml model artifacts.
type Store struct {
	dir string
}

// NewStore wraps a model directory; the directory need not exist yet.
func NewStore(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the on-disk location for a model name, registered or not.
func (s *Store) Path(name string) string {
	if model, ok := registry[name]; ok {
		return filepath.Join(s.dir, model.FileName)
	}
	return filepath.Join(s.dir, "ggml-"+name+".bin")
}

// Installed lists the model names present on disk, sorted. Files are matched
// by the ggml-*.bin naming convention regardless of registry membership.
func (s *Store) Installed() []string {
	matches, err := filepath.Glob(filepath.Join(s.dir, "ggml-*.bin"))
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(matches))
	for _, match := range matches {
		base := filepath.Base(match)
		name := strings.TrimSuffix(strings.TrimPrefix(base, "ggml-"), ".bin")
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Has reports whether the named model file exists.
func (s *Store) Has(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Verify checks a registered model's on-disk integrity. The check is
// size-based with 10% tolerance; SHA256 digests are recorded in the registry
// but not enforced. Unregistered files verify as long as they are non-empty.
func (s *Store) Verify(name string) bool {
	info, err := os.Stat(s.Path(name))
	if err != nil {
		return false
	}

	model, ok := registry[name]
	if !ok {
		return info.Size() > 0
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	expected := float64(model.SizeMB)
	return sizeMB > expected*0.9 && sizeMB < expected*1.1
}

// BestInstalled returns the most capable installed model, or empty when the
// store holds none.
func (s *Store) BestInstalled() string {
	installed := s.Installed()
	for _, name := range preferredOrder {
		for _, have := range installed {
			if have == name {
				return name
			}
		}
	}
	if len(installed) > 0 {
		return installed[0]
	}
	return ""
}

// Remove deletes a model file from the store.
func (s *Store) Remove(name string) error {
	if err := os.Remove(s.Path(name)); err != nil {
		return fmt.Errorf("remove model %q: %w", name, err)
	}
	return nil
}

// CleanCorrupted removes registered models that fail verification and
// returns how many files were deleted.
func (s *Store) CleanCorrupted() int {
	cleaned := 0
	for name := range registry {
		if s.Has(name) && !s.Verify(name) {
			if os.Remove(s.Path(name)) == nil {
				cleaned++
			}
		}
	}
	return cleaned
}
