// Package httpapi implements the optional, read-only loopback diagnostics
// surface (enabled only when --http-addr is set). Grounded on the chi
// router/middleware shape of internal/api/server.go in the teacher, trimmed
// to the three routes SPEC_FULL.md §4 calls for: it never originates
// protocol traffic and holds no write path into node state.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rumormesh/rumornode/internal/domain"
)

// PeerView is the read-only shape returned by GET /peers, independent of
// peertable's internal PeerRecord layout.
type PeerView struct {
	Addr                    string `json:"addr"`
	NodeID                  string `json:"node_id"`
	LastSeenMs              int64  `json:"last_seen_ms"`
	ConsecutivePingFailures int    `json:"consecutive_ping_failures"`
	RTTMs                   int64  `json:"rtt_ms"`
	Source                  string `json:"source"`
}

// PeerLister is the read-only view the node runtime exposes to this package;
// kept narrow so httpapi never gains write access into the peer table.
type PeerLister interface {
	PeerViews() []PeerView
}

// Server is the chi-routed diagnostics HTTP server.
type Server struct {
	peers    PeerLister
	registry *prometheus.Registry
	httpSrv  *http.Server
}

// New builds a Server bound to addr. registry may be nil, which disables
// /metrics without disabling /healthz and /peers.
func New(addr string, peers PeerLister, registry *prometheus.Registry) *Server {
	s := &Server{peers: peers, registry: registry}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/peers", s.handlePeers)
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s.httpSrv = &http.Server{Addr: addr, Handler: r}
	return s
}

// ListenAndServe blocks serving HTTP until the server is closed. Callers run
// it in its own goroutine; it never touches node state beyond the PeerLister
// and registry handed to New.
func (s *Server) ListenAndServe() error {
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the HTTP server down.
func (s *Server) Close() error {
	return s.httpSrv.Close()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePeers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"peers": s.peers.PeerViews()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// PeerRecordsToViews adapts domain.PeerRecord values (as returned by
// peertable.Table.All) into the stable PeerView wire shape. internal/node's
// PeerLister implementation calls this so the JSON shape lives in one place.
func PeerRecordsToViews(records []*domain.PeerRecord) []PeerView {
	views := make([]PeerView, 0, len(records))
	for _, p := range records {
		views = append(views, PeerView{
			Addr:                    p.Addr,
			NodeID:                  p.NodeID,
			LastSeenMs:              p.LastSeenMs,
			ConsecutivePingFailures: p.ConsecutivePingFailures,
			RTTMs:                   p.RTTMs,
			Source:                  string(p.Source),
		})
	}
	return views
}
