// Package config loads the server-side configuration from the `server:` section
// of the config file.
//
// Config fields:
//   - HTTPPort          port for the REST API and WebSocket hub (default 8080)
//   - Dataset           sensor log CSV evaluated on every request
//   - DefaultPolicy     policy used when a request names none
//   - EvaluationTTL     how long a team's latest evaluation stays live (default 30m)
//   - BroadcastInterval WebSocket push period (default 5s)
//   - RunLog            run-log backend (csv | sqlite | postgres)
//   - Auth.Mode         "apikey" or "none"
//   - Auth.KeyEnv       environment variable holding the expected API key
//   - Auth.Header       HTTP header name (default "x-api-key")
//   - Alerts            quality-gate rules and webhook targets
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
