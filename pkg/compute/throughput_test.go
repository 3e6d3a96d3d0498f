package compute

import "testing"

func TestModelThroughput(t *testing.T) {
	tests := []struct {
		name                 string
		manualRate, sampling float64
		fn                   int
		want                 Throughput
	}{
		{"baseline line", 0, 0, 0, Throughput{TaktTime: 45, JobsPerHour: 80}},
		{"everything checked", 1, 1, 3, Throughput{TaktTime: 60, JobsPerHour: 60, InspectionCost: 1500, DefectCost: 300}},
		{"sampling only", 0, 0.2, 1, Throughput{TaktTime: 46, JobsPerHour: 3600.0 / 46, InspectionCost: 100, DefectCost: 100}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ModelThroughput(tc.manualRate, tc.sampling, tc.fn)
			if !almostEqual(got.TaktTime, tc.want.TaktTime, 1e-9) {
				t.Errorf("TaktTime = %v, want %v", got.TaktTime, tc.want.TaktTime)
			}
			if !almostEqual(got.JobsPerHour, tc.want.JobsPerHour, 1e-9) {
				t.Errorf("JobsPerHour = %v, want %v", got.JobsPerHour, tc.want.JobsPerHour)
			}
			if !almostEqual(got.InspectionCost, tc.want.InspectionCost, 1e-9) {
				t.Errorf("InspectionCost = %v, want %v", got.InspectionCost, tc.want.InspectionCost)
			}
			if !almostEqual(got.DefectCost, tc.want.DefectCost, 1e-9) {
				t.Errorf("DefectCost = %v, want %v", got.DefectCost, tc.want.DefectCost)
			}
		})
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{66.66666, 1, 66.7},
		{78.26086, 1, 78.3},
		{0.25, 1, 0.2}, // exact tie resolves to even
		{0.36666, 3, 0.367},
		{45.15, 1, 45.1}, // stored just below the tie
		{45.45, 1, 45.5}, // stored just above the tie
	}
	for _, tc := range tests {
		if got := round(tc.v, tc.places); !almostEqual(got, tc.want, 1e-12) {
			t.Errorf("round(%v, %d) = %v, want %v", tc.v, tc.places, got, tc.want)
		}
	}
}

func TestRoundedTaktTime(t *testing.T) {
	tests := []struct {
		sampling float64
		want     float64
	}{
		{0.03, 45.1},
		{0.09, 45.5},
		{0.11, 45.5},
		{0.17, 45.9},
		{0.23, 46.1},
		{0.29, 46.5},
		{0.37, 46.9},
	}
	for _, tc := range tests {
		takt := ModelThroughput(0, tc.sampling, 0).TaktTime
		if got := round(takt, 1); got != tc.want {
			t.Errorf("sampling %v: takt %v rounds to %v, want %v", tc.sampling, takt, got, tc.want)
		}
	}
}
