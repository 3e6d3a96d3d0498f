// Package runlog persists the history of evaluation runs that teams choose
// to save.
//
// Record is one saved run: when, which team, the six policy scalars and the
// eight metric fields. Columns fixes the column order of the on-disk CSV
// format, which must stay compatible with existing participant_runs.csv
// files.
//
// Store is append-only. CSVStore appends to a local file and writes the
// header when it creates the file; SQLStore writes to SQLite (embedded) or
// PostgreSQL (shared) through a squirrel-built schema. Open picks a backend
// from Config.
//
// Query supports the view-logs use case: filter by team, sort by any column.
package runlog
