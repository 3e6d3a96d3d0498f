package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Preset names.
const (
	PresetDefault      = "default"
	PresetConservative = "conservative"
	PresetAggressive   = "aggressive"
	PresetBalanced     = "balanced"
)

// DefaultPolicy is the policy a fresh session starts with ("reset").
func DefaultPolicy() Policy {
	return Policy{
		ConfidenceThreshold: 0.7,
		ManualBand:          Band{Low: 0.5, High: 0.69},
		VibrationWeight:     0.6,
		AcousticWeight:      0.4,
		SamplingRate:        0.10,
	}
}

var presets = map[string]Policy{
	PresetDefault: DefaultPolicy(),
	PresetConservative: {
		ConfidenceThreshold: 0.65,
		ManualBand:          Band{Low: 0.50, High: 0.69},
		VibrationWeight:     0.7,
		AcousticWeight:      0.3,
		SamplingRate:        0.20,
	},
	PresetAggressive: {
		ConfidenceThreshold: 0.85,
		ManualBand:          Band{Low: 0.60, High: 0.65},
		VibrationWeight:     0.5,
		AcousticWeight:      0.5,
		SamplingRate:        0.05,
	},
	PresetBalanced: {
		ConfidenceThreshold: 0.75,
		ManualBand:          Band{Low: 0.55, High: 0.68},
		VibrationWeight:     0.6,
		AcousticWeight:      0.4,
		SamplingRate:        0.10,
	},
}

// ErrUnknownPreset is returned by Preset for a name outside the preset table.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset returns the named scenario preset. Names are case-insensitive;
// "reset" is an alias for the default policy.
func Preset(name string) (Policy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "reset" {
		key = PresetDefault
	}
	p, ok := presets[key]
	if !ok {
		return Policy{}, fmt.Errorf("%w %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// PresetNames returns all preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
