// Package exposition renders the latest evaluation of every team in the
// Prometheus exposition format, so line dashboards can scrape /metrics.
package exposition
