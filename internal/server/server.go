// Package server exposes the cached snapshot over HTTP: a small dashboard,
// JSON endpoints, a websocket feed, and Prometheus gauges.
package server

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/idwby/cpumon/internal/cache"
	"github.com/idwby/cpumon/internal/model"
)

//go:embed index.html
var indexHTML []byte

// Counts reports accepted and rejected inbound messages.
type Counts func() (accepted, rejected uint64)

type Server struct {
	cache    *cache.Cache
	counts   Counts
	log      *zap.Logger
	registry *prometheus.Registry
	upgrader websocket.Upgrader
	started  time.Time
}

func New(c *cache.Cache, counts Counts, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cache:   c,
		counts:  counts,
		log:     log,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.registry = newRegistry(c, counts)
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/data", s.handleData)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// legacyData is the shape the dashboard page polls.
type legacyData struct {
	Temperature float64 `json:"temperature"`
	Usage       float64 `json:"usage"`
	Memory      float64 `json:"memory"`
	Timestamp   float64 `json:"timestamp"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Latest()
	writeJSON(w, legacyData{
		Temperature: snap.TemperatureC,
		Usage:       snap.CPUUsage,
		Memory:      snap.MemoryUsage,
		Timestamp:   snap.Timestamp,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := model.Encode(s.cache.Latest())
	if err != nil {
		http.Error(w, "encode snapshot", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	}
	if at, ok := s.cache.Received(); ok {
		resp["received"] = true
		resp["last_message_age_seconds"] = time.Since(at).Seconds()
	} else {
		resp["received"] = false
	}
	if s.counts != nil {
		a, rej := s.counts()
		resp["accepted"] = a
		resp["rejected"] = rej
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
