// Command peerprotodemo wires up two peerproto endpoints against an
// in-memory transport, runs the handshake and a small input exchange,
// and ticks both until a shutdown signal arrives.
//
// Grounded on ventosilenzioso-go-raknet/core/main.go's banner/config/
// signal-handling shape.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"peerproto-go/internal/config"
	"peerproto-go/internal/endpoint"
	"peerproto-go/internal/metrics"
	"peerproto-go/internal/peerstatus"
	"peerproto-go/pkg/logger"
	"peerproto-go/pkg/transport"
)

const version = "0.1.0"

func main() {
	logger.Banner("Peer Protocol Demo", version)

	path := flag.String("config", "", "path to a TOML config file (optional)")
	flag.Parse()

	cfg := config.Default()
	if *path != "" {
		loaded, err := config.Load(*path)
		if err != nil {
			logger.Fatal("loading config: %v", err)
		}
		cfg = loaded
	}
	logger.Success("Configuration loaded")

	mem := transport.NewMemory()
	clock := transport.SystemClock{}
	rng := transport.MathRand{}

	collectors := metrics.NewCollectors()
	registry := prometheus.NewRegistry()
	collectors.MustRegister(registry)
	go serveMetrics(registry, cfg.Listen.Host)

	epCfg := endpoint.Config{
		SendLatency:           cfg.SendLatency(),
		OOPPercent:            cfg.ConfigInt("oop.percent"),
		DisconnectTimeout:     cfg.DisconnectTimeout(),
		DisconnectNotifyStart: cfg.DisconnectNotifyStart(),
	}

	a := endpoint.New(mem, clock, rng, transport.NewBasicTimeSync(), epCfg)
	b := endpoint.New(mem, clock, rng, transport.NewBasicTimeSync(), epCfg)
	a.SetMetrics(collectors)
	b.SetMetrics(collectors)

	statusA := peerstatus.NewTable()
	statusB := peerstatus.NewTable()
	a.Init("b", &statusA, 0)
	b.Init("a", &statusB, 1)
	mem.Register("a", a)
	mem.Register("b", b)

	logger.Info("Starting handshake")
	a.Synchronize()
	b.Synchronize()
	drainAndLog("a", a)
	drainAndLog("b", b)

	if a.Phase() != endpoint.PhaseRunning {
		logger.Fatal("handshake did not complete, phase=%s", a.Phase())
	}
	logger.Success("Handshake complete, phase=%s", a.Phase())

	for frame, payload := range [][]byte{{0x01}, {0x03}, {0x03}} {
		if err := a.SendInput(int32(frame), payload); err != nil {
			logger.Error("sending input frame %d: %v", frame, err)
		}
	}
	drainAndLog("b", b)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	logger.Info("Ticking endpoints; send SIGINT/SIGTERM to stop")
	for {
		select {
		case <-ticker.C:
			a.Tick()
			b.Tick()
			drainAndLog("a", a)
			drainAndLog("b", b)
		case sig := <-sigChan:
			logger.Warn("received signal: %v", sig)
			a.Disconnect()
			b.Disconnect()
			logger.Success("demo stopped")
			return
		}
	}
}

// serveMetrics exposes the Prometheus registry on /metrics; errors are
// logged, not fatal, since the demo itself does not depend on scraping.
func serveMetrics(registry *prometheus.Registry, host string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	addr := host + ":9090"
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped: %v", err)
	}
}

func drainAndLog(who string, ep *endpoint.Endpoint) {
	for {
		ev, ok := ep.PollEvent()
		if !ok {
			return
		}
		logger.Info("[%s] event %s", who, ev.Kind)
	}
}
