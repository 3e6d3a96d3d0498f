package types

import (
	"math"
	"testing"
)

func TestBand_Contains(t *testing.T) {
	b := Band{Low: 0.5, High: 0.69}
	tests := []struct {
		v    float64
		want bool
	}{
		{0.49, false},
		{0.5, true},
		{0.6, true},
		{0.69, true},
		{0.7, false},
	}
	for _, tc := range tests {
		if got := b.Contains(tc.v); got != tc.want {
			t.Errorf("Contains(%v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestPolicy_NormalizeWeights(t *testing.T) {
	p := Policy{VibrationWeight: 0.6, AcousticWeight: 0.6}.NormalizeWeights()
	if math.Abs(p.VibrationWeight-0.5) > 1e-9 || math.Abs(p.AcousticWeight-0.5) > 1e-9 {
		t.Errorf("weights = %v/%v, want 0.5/0.5", p.VibrationWeight, p.AcousticWeight)
	}

	zero := Policy{ConfidenceThreshold: 0.7}.NormalizeWeights()
	if zero.VibrationWeight != 0 || zero.AcousticWeight != 0 {
		t.Errorf("zero weights changed: %+v", zero)
	}
}

func TestPreset(t *testing.T) {
	p, err := Preset("Aggressive")
	if err != nil {
		t.Fatalf("Preset: %v", err)
	}
	if p.ConfidenceThreshold != 0.85 || p.SamplingRate != 0.05 {
		t.Errorf("aggressive = %+v", p)
	}

	reset, err := Preset("reset")
	if err != nil {
		t.Fatalf("Preset(reset): %v", err)
	}
	if reset != DefaultPolicy() {
		t.Errorf("reset = %+v, want default", reset)
	}

	if _, err := Preset("reckless"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestPresetNames_Sorted(t *testing.T) {
	names := PresetNames()
	want := []string{"aggressive", "balanced", "conservative", "default"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
