// Package evaluator runs the metrics engine on the server's dataset for
// incoming evaluate requests. Each result is stored as the team's latest
// evaluation and passed to the quality gates.
package evaluator
