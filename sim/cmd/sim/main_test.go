package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qcsim/qcsim/sim/internal/config"
	"github.com/qcsim/qcsim/sim/internal/shipper"
)

const testDataset = "../../../pkg/dataset/testdata/sensor_logs.csv"

func TestRunLookup(t *testing.T) {
	tests := []struct {
		name string
		path string
		id   string
		want int
	}{
		{"known part", testDataset, "2", 0},
		{"zero padded stem", testDataset, "002", 0},
		{"unknown part", testDataset, "99999", 2},
		{"not a number", testDataset, "abc", 2},
		{"missing dataset", "does-not-exist.csv", "1", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := runLookup(tc.path, tc.id); got != tc.want {
				t.Errorf("runLookup(%q) = %d, want %d", tc.id, got, tc.want)
			}
		})
	}
}

func TestDrain_WaitsForSlowServer(t *testing.T) {
	var got atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		got.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ship := shipper.New(config.ServerConfig{Endpoint: srv.URL})
	go ship.Run(ctx)

	ship.Ship(shipper.Submission{Team: "blue"})
	drain(ctx, ship)

	if got.Load() != 1 {
		t.Errorf("server received %d runs before drain returned, want 1", got.Load())
	}
	if ship.Pending() != 0 {
		t.Errorf("Pending = %d after drain", ship.Pending())
	}
}

func TestDrain_NilShipper(t *testing.T) {
	drain(context.Background(), nil)
}
