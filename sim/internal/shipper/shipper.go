package shipper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/qcsim/qcsim/pkg/types"
	"github.com/qcsim/qcsim/sim/internal/config"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second
	drainPoll         = 20 * time.Millisecond

	runsPath = "/api/v1/runs"
)

// Submission is one team run sent to the server. The server re-evaluates the
// policy against its own dataset before logging it.
type Submission struct {
	Team   string       `json:"team"`
	Policy types.Policy `json:"policy"`
}

// permanentError marks a submission the server will never accept.
type permanentError struct{ status int }

func (e *permanentError) Error() string { return fmt.Sprintf("server rejected run: HTTP %d", e.status) }

// Shipper buffers submissions and posts them to qcsim-server.
// Ship() is non-blocking; when the buffer is full the oldest submission is evicted.
// Run() must be called in a goroutine to drain the buffer.
type Shipper struct {
	url    string
	client *http.Client
	buf    chan Submission

	// pending counts buffered submissions plus the one Run is sending.
	pending atomic.Int64

	initialBackoff time.Duration // injectable for tests
}

// New creates a Shipper for cfg. cfg.Endpoint must be set.
func New(cfg config.ServerConfig) *Shipper {
	size := cfg.BufferSize
	if size <= 0 {
		size = config.DefaultBufferSize
	}
	return &Shipper{
		url: strings.TrimRight(cfg.Endpoint, "/") + runsPath,
		client: &http.Client{
			Transport: &authRoundTripper{base: http.DefaultTransport, auth: cfg.Auth},
			Timeout:   sendTimeout,
		},
		buf:            make(chan Submission, size),
		initialBackoff: backoffInitial,
	}
}

// Ship enqueues sub. If the buffer is full the oldest entry is evicted to make room.
func (s *Shipper) Ship(sub Submission) {
	s.pending.Add(1)
	for {
		select {
		case s.buf <- sub:
			return
		default:
		}
		select {
		case old := <-s.buf:
			s.pending.Add(-1)
			slog.Warn("shipper: buffer full, evicted oldest run",
				"team", old.Team, "buffer_cap", cap(s.buf))
		default:
		}
	}
}

// Pending returns the number of submissions not yet delivered or discarded,
// including one that is currently being sent.
func (s *Shipper) Pending() int { return int(s.pending.Load()) }

// Drain waits until every shipped submission has been delivered or discarded.
// It returns ctx.Err() if ctx ends first. Run must be running.
func (s *Shipper) Drain(ctx context.Context) error {
	tick := time.NewTicker(drainPoll)
	defer tick.Stop()
	for s.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

// Run drains the buffer, posting submissions to the server. A submission that
// fails transiently is retried with backoff until it is delivered or ctx ends.
// Run blocks until ctx is cancelled.
func (s *Shipper) Run(ctx context.Context) {
	bo := newBackoff(s.initialBackoff)
	for {
		var sub Submission
		select {
		case <-ctx.Done():
			return
		case sub = <-s.buf:
		}

		for {
			err := s.send(ctx, sub)
			if err == nil {
				bo.reset()
				s.pending.Add(-1)
				slog.Debug("shipper: run delivered", "team", sub.Team)
				break
			}
			var perm *permanentError
			if errors.As(err, &perm) {
				s.pending.Add(-1)
				slog.Error("shipper: permanent send error, discarding run", "team", sub.Team, "err", err)
				break
			}

			wait := bo.next()
			slog.Warn("shipper: send failed, will retry", "url", s.url, "err", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}
}

// send posts one submission.
func (s *Shipper) send(ctx context.Context, sub Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return &permanentError{}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode < 500:
		return &permanentError{status: resp.StatusCode}
	default:
		return fmt.Errorf("server returned HTTP %d", resp.StatusCode)
	}
}

// authRoundTripper injects the API key header into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.auth.Mode == "apikey" {
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.EffectiveHeader(), t.auth.Key())
	}
	return t.base.RoundTrip(req)
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	initial time.Duration
	current time.Duration
}

func newBackoff(initial time.Duration) *backoff {
	return &backoff{initial: initial, current: initial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = b.initial
}
