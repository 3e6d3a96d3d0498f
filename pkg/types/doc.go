// Package types defines the Go types shared by the simulator CLI and the
// server: sensor part records, ground-truth labels and the inspection policy
// that configures one evaluation run.
//
// Presets mirrors the scenario presets offered to workshop teams.
package types
