// Package shipper submits team runs to a shared qcsim-server over HTTP
// (POST /api/v1/runs), so a lab's leaderboard collects every participant's
// runs in one run log.
//
// Shipper.Ship() is non-blocking: submissions are placed in an in-memory
// channel. When the buffer is full the oldest entry is evicted so the latest
// runs are always preserved.
//
// Shipper.Run() drains the buffer, retrying with truncated exponential
// backoff (1s to 60s, ±25% jitter) on connection errors and 5xx responses.
// 4xx responses (bad key, blank team, unknown field) discard the submission
// immediately rather than retrying.
//
// Shipper.Drain() blocks until every shipped run, including one mid-send,
// has been delivered or discarded; one-shot invocations call it before exit.
//
// The API key, when configured, is injected by an http.RoundTripper.
package shipper
