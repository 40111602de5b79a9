package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeLister struct{ views []PeerView }

func (f fakeLister) PeerViews() []PeerView { return f.views }

func newTestServer(t *testing.T, views []PeerView) *Server {
	t.Helper()
	return New("127.0.0.1:0", fakeLister{views: views}, prometheus.NewRegistry())
}

func TestHealthzReportsOK(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Fatalf("want status ok, got %v", body)
	}
}

func TestPeersReturnsListerView(t *testing.T) {
	s := newTestServer(t, []PeerView{{Addr: "10.0.0.1:1", NodeID: "n1"}})
	req := httptest.NewRequest(http.MethodGet, "/peers", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var body struct {
		Peers []PeerView `json:"peers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Peers) != 1 || body.Peers[0].Addr != "10.0.0.1:1" {
		t.Fatalf("want one peer entry, got %v", body.Peers)
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}
