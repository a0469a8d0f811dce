// Package api serves the aggregator's read-only HTTP view.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridwatch/pkg/model"
	"gridwatch/pkg/telemetry"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 5000
)

// StatusResponse is the body of /api/v1/status.
type StatusResponse struct {
	State      model.ConnectionState `json:"state"`
	Completed  bool                  `json:"completed"`
	Counters   model.Counters        `json:"counters"`
	WindowSize int                   `json:"windowSize"`
	LogTotal   uint64                `json:"logTotal"`
	Session    string                `json:"session"`
}

type SnapshotResponse struct {
	State model.ConnectionState `json:"state"`
	model.Snapshot
}

// RegisterRoutes wires the HTTP handlers on the provided mux. state may be
// nil when no connection is attached; gatherer may be nil to skip /metrics.
func RegisterRoutes(mux *http.ServeMux, agg *telemetry.Aggregator, state func() model.ConnectionState, gatherer prometheus.Gatherer) {
	if state == nil {
		state = func() model.ConnectionState { return model.StateConnecting }
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("gridwatch"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/status", getOnly(func(w http.ResponseWriter, r *http.Request) {
		events := agg.EventLog()
		writeJSON(w, http.StatusOK, StatusResponse{
			State:      state(),
			Completed:  agg.Completed(),
			Counters:   agg.Counters(),
			WindowSize: agg.WindowSize(),
			LogTotal:   events.Total(),
			Session:    events.Session(),
		})
	}))

	mux.HandleFunc("/api/v1/snapshot", getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, SnapshotResponse{State: state(), Snapshot: agg.Snapshot()})
	}))

	mux.HandleFunc("/api/v1/stability", getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, agg.Merged())
	}))

	mux.HandleFunc("/api/v1/log", getOnly(func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLogLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxLogLimit)
		}
		events := agg.EventLog()
		if r.URL.Query().Get("persisted") == "1" {
			h, ok := events.History()
			if !ok {
				http.Error(w, "no persistent event log configured", http.StatusNotImplemented)
				return
			}
			entries, err := h.Recent(r.Context(), limit)
			if err != nil {
				log.Printf("event log history failed: %v", err)
				http.Error(w, "failed to read event log", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, entries)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"lines":   events.Tail(limit),
			"total":   events.Total(),
			"dropped": events.Dropped(),
		})
	}))

	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}
