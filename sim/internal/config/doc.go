// Package config loads and watches the simulator configuration file (sim.yaml).
//
// Top-level types:
//   - Config{Sim}: full config tree parsed from YAML
//   - SimConfig: dataset, preset, policy, normalize_weights, team, roi,
//     runlog, server, log_level
//   - ROIConfig: baseline_defect_cost (optional), investment_cost
//   - ServerConfig: endpoint, auth, buffer_size for shipping runs to qcsim-server
//
// Load(path) reads the YAML file, applies defaults (default policy, weight
// normalisation on, investment 5000, CSV run log under logs/), then validates
// ranges the way the dashboard sliders constrain them: threshold, band,
// weights and sampling rate within [0, 1] and band low <= high.
//
// SimConfig.Policy resolves the effective policy: a named preset wins over
// the inline policy, and weights are normalised to sum to 1 unless
// normalize_weights is false.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create pattern
// used by atomic-save editors by re-adding the watch after each event.
package config
