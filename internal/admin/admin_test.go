package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/virtops/tunnelctl/internal/testutil/testlog"
	"github.com/virtops/tunnelctl/internal/tunnel"
)

func testServer() (*Server, *tunnel.Pool) {
	pool := tunnel.NewPool(tunnel.Config{ClientPath: "/bin/sh", ClientArgs: []string{"-s"}})
	return New(Config{Service: "tunnelctl-test"}, pool), pool
}

func TestHealthRoute(t *testing.T) {
	testlog.Start(t)
	s, pool := testServer()
	defer pool.Shutdown()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "tunnelctl-test" {
		t.Fatalf("unexpected response body: %#v", body)
	}
}

func TestTunnelsRouteListsPool(t *testing.T) {
	testlog.Start(t)
	s, pool := testServer()
	defer pool.Shutdown()

	if _, err := pool.Acquire("hv-01", nil, nil); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/tunnels", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		Tunnels []tunnel.Status `json:"tunnels"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Tunnels) != 1 || body.Tunnels[0].Hostname != "hv-01" || !body.Tunnels[0].Alive {
		t.Fatalf("unexpected tunnels payload: %+v", body.Tunnels)
	}
}

func TestKillRouteReleasesTunnel(t *testing.T) {
	testlog.Start(t)
	s, pool := testServer()
	defer pool.Shutdown()

	if _, err := pool.Acquire("hv-01", nil, nil); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/tunnels/kill",
		strings.NewReader(`{"hostname":"hv-01"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if _, ok := pool.Lookup(tunnel.NewKey("hv-01", nil)); ok {
		t.Fatalf("kill route must release the tunnel")
	}

	// Releasing an absent key stays a no-op.
	req = httptest.NewRequest(http.MethodPost, "/tunnels/kill",
		strings.NewReader(`{"hostname":"hv-01"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected idempotent kill, got %d", rr.Code)
	}
}

func TestKillRouteRequiresHostname(t *testing.T) {
	testlog.Start(t)
	s, pool := testServer()
	defer pool.Shutdown()

	req := httptest.NewRequest(http.MethodPost, "/tunnels/kill", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestMetricsRouteServesPrometheus(t *testing.T) {
	testlog.Start(t)
	s, pool := testServer()
	defer pool.Shutdown()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected prometheus exposition output")
	}
}
