package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/gem-allocator/internal/allocator"
	"github.com/eugenenazirov/gem-allocator/internal/application"
	"github.com/eugenenazirov/gem-allocator/internal/config"
	"github.com/eugenenazirov/gem-allocator/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("gem-allocator", "Gem Allocator - pays a target value out of a user's gem inventory")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	envFile := kingpinApp.Flag("env-file", "Path to a dotenv file loaded before reading the environment").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()

	serveCmd := kingpinApp.Command("serve", "Run the HTTP API").Default()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	defaultStrategy := serveCmd.Flag("default-strategy", "Strategy used when a request does not name one").String()
	seedInventoryStr := serveCmd.Flag("seed-inventory", "Comma-separated Kind=Quantity inventory for the seed user").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	allocateCmd := kingpinApp.Command("allocate", "Allocate a target value once and print the combination")
	strategy := allocateCmd.Flag("strategy", "Allocation strategy (SMALL, SMART, BIG, EXACT)").Default(string(allocator.Smart)).String()
	target := allocateCmd.Flag("target", "Target value to pay").Required().Float64()
	inventory := allocateCmd.Flag("inventory", "Comma-separated Kind=Quantity inventory, e.g. Ruby=20,Topaz=6").Required().String()

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	if command == allocateCmd.FullCommand() {
		if err := runAllocate(os.Stdout, *strategy, *target, *inventory); err != nil {
			kingpinApp.Fatalf("%v", err)
		}
		return
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if *port != "" {
		overrides.Port = port
	}

	if *defaultStrategy != "" {
		overrides.DefaultStrategy = defaultStrategy
	}

	if *seedInventoryStr != "" {
		overrides.SeedInventoryStr = seedInventoryStr
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
