package application

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/gem-allocator/internal/allocator"
	"github.com/eugenenazirov/gem-allocator/internal/catalog"
	"github.com/eugenenazirov/gem-allocator/internal/config"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	cfg.SeedUserID = "alice"
	cfg.SeedInventory = []allocator.InventoryLine{
		{Kind: catalog.Magic, Owned: 1},
		{Kind: catalog.Ruby, Owned: 4},
	}
	logger := zaptest.NewLogger(t)

	app, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	got, err := app.storage.GetInventory("alice")
	if err != nil {
		t.Fatalf("GetInventory returned error: %v", err)
	}
	want := []allocator.InventoryLine{
		{Kind: catalog.Ruby, Owned: 4},
		{Kind: catalog.Magic, Owned: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected seeded inventory (-want +got):\n%s", diff)
	}
	if app.server == nil || app.router == nil || app.handler == nil || app.metrics == nil {
		t.Fatalf("expected server, router, handler, and metrics to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewReturnsErrorForInvalidSeed(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.SeedInventory = []allocator.InventoryLine{{Kind: catalog.Ruby, Owned: 1, Frozen: 2}}

	if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for invalid seed inventory")
	}
}

func TestAppServesAllocationsAndMetrics(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.SeedInventory = []allocator.InventoryLine{{Kind: catalog.Topaz, Owned: 10}}
	cfg.DefaultStrategy = allocator.Big

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/allocate",
		bytes.NewBufferString(`{"userId":"demo","targetValue":15}`))
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"strategy":"BIG"`) {
		t.Fatalf("expected configured default strategy in response, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `gem_allocations_total{outcome="success",strategy="BIG"} 1`) {
		t.Fatalf("expected allocation counter in metrics output")
	}
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                 port,
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
		DefaultStrategy:      allocator.Smart,
		SeedUserID:           "demo",
	}
}
