// Package config loads and persists user preferences as TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/termina-app/termina/internal/platform"
)

// Config is the on-disk preference file. Missing keys take defaults, so old
// files keep working as fields are added.
type Config struct {
	Transcription TranscriptionConfig `toml:"transcription"`
	Audio         AudioConfig         `toml:"audio"`
	Filters       FiltersConfig       `toml:"filters"`
}

type TranscriptionConfig struct {
	// Provider is the saved preference: a provider name or "auto".
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	Language string `toml:"language"`
}

type AudioConfig struct {
	MaxSeconds int `toml:"max_seconds"`
}

// FiltersConfig mirrors the ffmpeg preprocessing chain toggles.
type FiltersConfig struct {
	Preprocess bool `toml:"preprocess"`

	Highpass  bool `toml:"highpass"`
	Lowpass   bool `toml:"lowpass"`
	Volume    bool `toml:"volume"`
	NoiseGate bool `toml:"noise_gate"`

	HighpassHz    int     `toml:"highpass_hz"`
	LowpassHz     int     `toml:"lowpass_hz"`
	VolumeLevel   float64 `toml:"volume_level"`
	GateThreshold int     `toml:"gate_threshold_db"`
}

func defaultConfig() *Config {
	return &Config{
		Transcription: TranscriptionConfig{
			Provider: "auto",
			Model:    "base",
			Language: "ja",
		},
		Audio: AudioConfig{
			MaxSeconds: 120,
		},
		Filters: FiltersConfig{
			Preprocess:    true,
			Highpass:      true,
			Lowpass:       true,
			Volume:        true,
			NoiseGate:     true,
			HighpassHz:    80,
			LowpassHz:     8000,
			VolumeLevel:   1.5,
			GateThreshold: -50,
		},
	}
}

// Path returns the config file location, creating its directory.
func Path() (string, error) {
	dir, err := platform.ResolveConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file, creating it with defaults when absent. Unknown
// keys in the file are ignored.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a specific config file, creating it with defaults when
// absent.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaultConfig()
		if err := save(path, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}

	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// Save persists the config at the default location.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return save(path, c)
}

// SaveTo persists the config at a specific path.
func (c *Config) SaveTo(path string) error {
	return save(path, c)
}

func save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
