// Command coredemo wires the arena, skiplist, memtable, write batch, and
// sharded cache into a small HTTP-fronted write-path core, for smoke
// testing and demonstration.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"lsmdb/internal/http"
	"lsmdb/pkg/config"
	"lsmdb/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "coredemo.yaml", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(config.NewLogger(cfg.Logger))

	registry := metrics.NewRegistry()
	engine := http.NewEngine(cfg.Cache.CapacityBytes, registry)
	server := http.NewServer(engine, strconv.Itoa(cfg.Server.Port))

	if err := server.Start(); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("shutting down")
	if err := server.Stop(); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
}
