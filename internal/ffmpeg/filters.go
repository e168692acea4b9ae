package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter names, also the keys accepted by FilterSet.SetEnabled and Configure.
const (
	FilterHighpass  = "highpass"
	FilterLowpass   = "lowpass"
	FilterVolume    = "volume"
	FilterNoiseGate = "noise_gate"
)

// identityChain is the no-op descriptor used when nothing is enabled; ffmpeg
// rejects an empty -af argument.
const identityChain = "anull"

// FilterSpec describes one audio transform stage. Which numeric field is
// meaningful depends on the filter: Frequency for highpass/lowpass, Level for
// volume, Threshold for the noise gate. Parameter validity is the caller's
// responsibility.
type FilterSpec struct {
	Name        string
	Enabled     bool
	Frequency   int     // Hz
	Level       float64 // volume multiplier
	Threshold   int     // dB
	Description string
}

// FilterSet holds the standard preprocessing filters in their fixed
// application order: highpass, lowpass, volume, noise gate.
type FilterSet struct {
	specs []FilterSpec
}

// DefaultFilters returns the standard speech-cleanup set, all enabled.
func DefaultFilters() *FilterSet {
	return &FilterSet{specs: []FilterSpec{
		{Name: FilterHighpass, Enabled: true, Frequency: 80, Description: "Remove low-frequency noise"},
		{Name: FilterLowpass, Enabled: true, Frequency: 8000, Description: "Remove high-frequency noise"},
		{Name: FilterVolume, Enabled: true, Level: 1.5, Description: "Normalize audio volume"},
		{Name: FilterNoiseGate, Enabled: true, Threshold: -50, Description: "Remove background noise below threshold"},
	}}
}

// Chain renders the enabled filters, in canonical order, as an ffmpeg -af
// argument. With zero filters enabled it returns the identity descriptor.
func (s *FilterSet) Chain() string {
	var stages []string
	for _, spec := range s.specs {
		if !spec.Enabled {
			continue
		}
		stages = append(stages, renderStage(spec))
	}

	if len(stages) == 0 {
		return identityChain
	}
	return strings.Join(stages, ",")
}

func renderStage(spec FilterSpec) string {
	switch spec.Name {
	case FilterHighpass, FilterLowpass:
		return fmt.Sprintf("%s=f=%d", spec.Name, spec.Frequency)
	case FilterVolume:
		return "volume=" + strconv.FormatFloat(spec.Level, 'g', -1, 64)
	case FilterNoiseGate:
		return fmt.Sprintf("silenceremove=start_periods=0:start_duration=0.1:start_threshold=%ddB:detection=peak", spec.Threshold)
	default:
		return spec.Name
	}
}

// SetEnabled toggles a filter by name. Unknown names are ignored.
func (s *FilterSet) SetEnabled(name string, enabled bool) {
	for i := range s.specs {
		if s.specs[i].Name == name {
			s.specs[i].Enabled = enabled
			return
		}
	}
}

// Configure applies fn to the named filter's spec. It reports whether the
// filter exists.
func (s *FilterSet) Configure(name string, fn func(*FilterSpec)) bool {
	for i := range s.specs {
		if s.specs[i].Name == name {
			fn(&s.specs[i])
			return true
		}
	}
	return false
}

// Specs returns a copy of the filter specs in application order.
func (s *FilterSet) Specs() []FilterSpec {
	out := make([]FilterSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// AdvancedChain renders the enhanced speech chain: rumble and hiss removal,
// an optional RNN denoiser, dynamic-range compression tuned for speech, and
// loudness normalization. The denoiser stage is included only when requested;
// callers should first check the engine reports the capability.
func AdvancedChain(withDenoiser bool) string {
	stages := []string{"highpass=f=80", "lowpass=f=8000"}
	if withDenoiser {
		stages = append(stages, "arnndn")
	}
	stages = append(stages,
		"compand=attacks=0.1:decays=0.3:gain=2",
		"loudnorm=I=-16:TP=-1.5:LRA=11",
	)
	return strings.Join(stages, ",")
}
