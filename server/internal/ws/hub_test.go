package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/server/internal/store"
	wsHub "github.com/qcsim/qcsim/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func newStore(evals ...*store.Evaluation) *store.Store {
	st := store.New(5 * time.Minute)
	for _, e := range evals {
		st.Put(e)
	}
	return st
}

func eval(team string, fn int) *store.Evaluation {
	return &store.Evaluation{
		ID:   team + "-1",
		Team: team,
		Result: &compute.Result{
			Accuracy:       75,
			FalseNegatives: fn,
			DefectCost:     float64(fn) * compute.EscapeCost,
			InspectionCost: 100,
		},
		EvaluatedAt: time.Now(),
	}
}

// message mirrors the hub envelope for decoding.
type message struct {
	Event       string                   `json:"event"`
	Data        []map[string]interface{} `json:"data"`
	GeneratedAt string                   `json:"generated_at"`
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
func startHub(t *testing.T, st *store.Store) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st, 1000, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads and decodes one message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, raw)
	}
	return m
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateEvaluations(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore(eval("blue", 1)))

	m := readMessage(t, dial(t, wsURL))
	if m.Event != wsHub.EventEvaluations {
		t.Errorf("event: got %q, want %q", m.Event, wsHub.EventEvaluations)
	}
	if m.GeneratedAt == "" {
		t.Error("generated_at: missing")
	}
	if len(m.Data) != 1 || m.Data[0]["team"] != "blue" {
		t.Fatalf("data: got %v", m.Data)
	}
	// baseline 200, ((200-100)-100)/1000 = 0
	roi := m.Data[0]["roi"].(map[string]interface{})
	if roi["applicable"] != true || roi["roi"].(float64) != 0 {
		t.Errorf("roi: got %v", roi)
	}
}

func TestHub_MessageContainsAllTeams(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore(eval("blue", 1), eval("red", 0)))

	m := readMessage(t, dial(t, wsURL))
	if len(m.Data) != 2 {
		t.Fatalf("data: got %d evaluations, want 2", len(m.Data))
	}
	if m.Data[0]["team"] != "blue" || m.Data[1]["team"] != "red" {
		t.Errorf("teams out of order: %v, %v", m.Data[0]["team"], m.Data[1]["team"])
	}
}

func TestHub_EmptyStore_EmptyData(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore())
	m := readMessage(t, dial(t, wsURL))
	if m.Data == nil || len(m.Data) != 0 {
		t.Errorf("data: got %v, want empty array", m.Data)
	}
}

func TestHub_CountClients_MultipleClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore())

	for i := 0; i < 3; i++ {
		readMessage(t, dial(t, wsURL)) // consume initial message
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore())

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	st := newStore()
	wsURL, _, _ := startHub(t, st)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume immediate message (empty store)

	st.Put(eval("green", 2))

	// A tick may race the Put; keep reading until green shows up.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m := readMessage(t, conn)
		if len(m.Data) == 1 && m.Data[0]["team"] == "green" {
			return
		}
	}
	t.Fatal("tick broadcast never carried the new evaluation")
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newStore())

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel()

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(newStore(), 0, testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
