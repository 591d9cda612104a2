// Command fabricd runs the messaging fabric as a standalone process: it
// wires the bus, storage tiers, monitor, optimizer, and reliability
// collaborators into one fabricRuntime and serves a Prometheus scrape
// endpoint alongside the in-process pub/sub fabric.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kcenon/messaging-fabric/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		runServe(os.Args[1:])
		return
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "version":
		fmt.Println("fabricd (messaging-fabric)")
	case "config":
		runConfigCheck(os.Args[2:])
	default:
		runServe(os.Args[1:])
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file (defaults built in if omitted)")
	metricsAddr := fs.String("metrics-addr", ":9090", "address to serve /metrics on")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fabricd: config error:", err)
		os.Exit(1)
	}

	rt := newFabricRuntime(*cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rt.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fabricd: start error:", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rt.log.Error(err, "metrics server exited")
		}
	}()

	refreshInterval := time.Duration(cfg.Monitoring.IntervalMs) * time.Millisecond
	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Second
	}
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rt.exporter.Refresh()
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	rt.Stop(shutdownCtx)
}

func runConfigCheck(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("path", "", "path to a YAML config file to validate")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config invalid:", err)
		os.Exit(1)
	}
	fmt.Printf("config ok: %+v\n", *cfg)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	return config.Decode(data)
}
