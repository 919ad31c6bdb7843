package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestServer(t *testing.T) {
	m := NewMetrics()
	m.ToolBuildsTotal.WithLabelValues("echo", "compile", "success").Inc()

	s, err := m.Listen("127.0.0.1:0", zerolog.Nop())
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `tool_builds_total{status="success",step="compile",tool_name="echo"} 1`) {
		t.Errorf("Metrics output missing build counter:\n%s", body)
	}

	resp, err = http.Get("http://" + s.Addr() + "/other")
	if err != nil {
		t.Fatalf("GET /other failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if _, err := http.Get("http://" + s.Addr() + "/metrics"); err == nil {
		t.Error("Expected request after shutdown to fail")
	}
}

func TestServerListenError(t *testing.T) {
	m := NewMetrics()
	if _, err := m.Listen("not-an-address", zerolog.Nop()); err == nil {
		t.Error("Expected error for invalid address")
	}
}
