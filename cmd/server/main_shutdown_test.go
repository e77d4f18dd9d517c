package main

import (
	"net"
	"net/http"
	"os"
	osSignal "os/signal"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eugenenazirov/gem-allocator/internal/config"
)

func loadShutdownConfig(t *testing.T, grace string) config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("shutdown_grace_period: "+grace+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(&config.CLIOverrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("config.Load returned error: %v", err)
	}
	return cfg
}

func sendSIGTERM(t *testing.T) {
	t.Helper()

	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})
	signalNotify = func(ch chan<- os.Signal, _ ...os.Signal) {
		go func() {
			ch <- syscall.SIGTERM
		}()
	}
}

func TestShutdownOnSignal(t *testing.T) {
	cfg := loadShutdownConfig(t, "200ms")
	sendSIGTERM(t)

	server := &http.Server{}
	called := make(chan struct{}, 1)
	server.RegisterOnShutdown(func() {
		called <- struct{}{}
	})

	core, logs := observer.New(zap.InfoLevel)
	shutdown(server, cfg.ShutdownGracePeriod, zap.New(core))

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatalf("expected server shutdown callback to execute")
	}
	if logs.FilterMessage("shutting down server").Len() != 1 {
		t.Fatalf("expected shutdown to be logged")
	}
	if logs.FilterMessage("graceful shutdown failed").Len() != 0 {
		t.Fatalf("expected an idle server to shut down gracefully")
	}
}

func TestShutdownForcesCloseAfterGracePeriod(t *testing.T) {
	cfg := loadShutdownConfig(t, "100ms")
	if cfg.ShutdownGracePeriod != 100*time.Millisecond {
		t.Fatalf("expected grace period from config, got %v", cfg.ShutdownGracePeriod)
	}
	sendSIGTERM(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	server := &http.Server{Handler: http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})}
	go func() {
		_ = server.Serve(ln)
	}()
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/allocate/preview")
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatalf("in-flight request never reached the handler")
	}

	core, logs := observer.New(zap.InfoLevel)
	begin := time.Now()
	shutdown(server, cfg.ShutdownGracePeriod, zap.New(core))
	elapsed := time.Since(begin)

	if elapsed < cfg.ShutdownGracePeriod {
		t.Fatalf("expected shutdown to wait the %v grace period, returned after %v", cfg.ShutdownGracePeriod, elapsed)
	}
	if elapsed > time.Second {
		t.Fatalf("expected forced close shortly after the grace period, took %v", elapsed)
	}
	if logs.FilterMessage("graceful shutdown failed").Len() != 1 {
		t.Fatalf("expected the expired grace period to be logged")
	}
}
