// Command satgen runs a configured constellation simulation end-to-end and
// writes its tick-addressable archive, spec.md §6.
//
// Usage: satgen <config-path> [output-zip-path]
//
// Grounded on the now-deleted cmd/satnet_router/main.go's flag-parsing,
// signal-handling, log.Printf/log.Fatalf idiom.
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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/OpenFogStack/celestial/internal/archive"
	"github.com/OpenFogStack/celestial/internal/config"
	"github.com/OpenFogStack/celestial/internal/eventbus"
	"github.com/OpenFogStack/celestial/internal/httpapi"
	"github.com/OpenFogStack/celestial/internal/observability"
	"github.com/OpenFogStack/celestial/internal/simulator"
	"github.com/OpenFogStack/celestial/internal/utils"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: satgen <config-path> [output-zip-path]")
		flag.PrintDefaults()
	}
	listenAddr := flag.String("listen", ":9090", "address for the /healthz, /metrics and /status HTTP endpoints")
	natsURI := flag.String("nats", "", "NATS URI to publish tick.complete events to (disabled if empty)")
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	logger := utils.NewLogger()

	cfg, warnings, err := config.Load(flag.Arg(0))
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		logger.Warn("%s", w)
	}

	outPath := flag.Arg(1)
	if outPath == "" {
		outPath, err = archive.DefaultFilename(cfg)
		if err != nil {
			logger.Error("failed to derive default output filename: %v", err)
			os.Exit(1)
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		logger.Error("failed to create output archive %s: %v", outPath, err)
		os.Exit(1)
	}
	defer f.Close()

	uri := *natsURI
	if uri == "" {
		uri = os.Getenv("CELESTIAL_NATS_URI")
	}
	var notifier simulator.Notifier
	if uri != "" {
		pub, err := eventbus.Connect(uri)
		if err != nil {
			logger.Error("failed to connect to nats at %s: %v", uri, err)
			abortRun(logger, f, outPath)
		}
		defer pub.Close()
		notifier = pub
		logger.Info("publishing tick.complete events to %s", uri)
	}

	metrics := observability.New(prometheus.DefaultRegisterer)
	status := httpapi.NewStatusReporter(cfg.Ticks(), time.Now())
	go func() {
		router := httpapi.NewRouter(metrics, status)
		if err := http.ListenAndServe(*listenAddr, router); err != nil && err != http.ErrServerClosed {
			logger.Warn("http server stopped: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tp, err := observability.NewTracerProvider(os.Stderr)
	if err != nil {
		logger.Error("failed to start tracer provider: %v", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer provider shutdown: %v", err)
		}
	}()

	writer := archive.NewWriter(f)
	sim := simulator.New(cfg, writer, &tickLogger{logger: logger, status: status, metrics: metrics}, notifier).
		WithTracer(func(ctx context.Context, tick int) (context.Context, func()) {
			spanCtx, span := observability.StartTick(ctx, tick)
			return spanCtx, func() { span.End() }
		})

	if err := sim.WritePreamble(); err != nil {
		logger.Error("failed to write archive preamble: %v", err)
		abortRun(logger, f, outPath)
	}

	logger.Info("starting simulation: %d shells, %d ticks, output %s", len(cfg.Shells), cfg.Ticks(), outPath)
	if err := sim.Run(ctx); err != nil {
		logger.Error("simulation failed: %v", err)
		abortRun(logger, f, outPath)
	}
	logger.Info("simulation complete")
}

// abortRun implements spec.md §7's "archive write failures abort the run
// and remove the partial output file": it closes the half-written archive,
// deletes it, and exits non-zero rather than leaving a truncated file that
// could be mistaken for a complete run.
func abortRun(logger *utils.Logger, f *os.File, outPath string) {
	f.Close()
	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove partial output archive %s: %v", outPath, err)
	}
	os.Exit(1)
}

// tickLogger adapts observability.Metrics and httpapi.StatusReporter into
// one simulator.Observer.
type tickLogger struct {
	logger  *utils.Logger
	status  *httpapi.StatusReporter
	metrics *observability.Metrics
}

func (t *tickLogger) ObserveTick(tick int, elapsed time.Duration, activeSatellites, machineDiffs, linkDiffs int) {
	t.status.Update(tick, activeSatellites)
	t.metrics.ObserveTick(tick, elapsed, activeSatellites, machineDiffs, linkDiffs)
	t.logger.Debug("tick %d: %d active satellites, %d machine diffs, %d link diffs (%s)",
		tick, activeSatellites, machineDiffs, linkDiffs, elapsed)
}
