// Package api implements the HTTP REST API for qcsim-server.
//
// New(deps) returns an http.Handler that serves:
//
//	GET  /api/v1/health         dataset size, live evaluation count, firing gates
//	POST /api/v1/evaluate       run the engine for {team, preset, policy}; ?parts=true adds rows
//	GET  /api/v1/evaluations    latest live evaluation per team
//	POST /api/v1/roi            ROI of four scalars; null when not applicable
//	GET  /api/v1/parts/{id}     ground-truth label; 404 "not found" for unknown ids
//	GET  /api/v1/presets        scenario preset table
//	GET  /api/v1/runs           run log, filtered by ?team= and ordered by ?sort=&order=
//	POST /api/v1/runs           evaluate and append to the run log (team required)
//	GET  /api/v1/runs/export    run log as CSV
//	GET  /api/v1/alerts         firing and recently resolved quality gates
//
// All endpoints respond with JSON (except the CSV export) and return 405 for
// unsupported methods. Policies are evaluated as given, without range checks.
package api
