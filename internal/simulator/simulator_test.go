package simulator

import (
	"bytes"
	"context"
	"testing"

	"github.com/OpenFogStack/celestial/internal/archive"
	"github.com/OpenFogStack/celestial/internal/config"
	"github.com/OpenFogStack/celestial/internal/types"
)

func wholeEarthCfg() *config.Config {
	return &config.Config{
		BoundingBox:       types.BoundingBox{Lat1: -90, Lon1: -180, Lat2: 90, Lon2: 180},
		DurationSeconds:   4,
		ResolutionSeconds: 1,
		Shells: []config.Shell{
			{Planes: 1, Sats: 2, AltitudeKM: 550, InclinationDeg: 53, ISLBandwidthKbits: 10_000},
		},
		DelayUpdateThresholdUS: 500,
	}
}

func TestRunProducesFirstTickDiffsAndCompletes(t *testing.T) {
	cfg := wholeEarthCfg()
	var buf bytes.Buffer
	w := archive.NewWriter(&buf)

	sim := New(cfg, w, nil, nil)
	if err := sim.WritePreamble(); err != nil {
		t.Fatalf("preamble: %v", err)
	}
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	r, err := archive.OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}

	gotCfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if gotCfg.DurationSeconds != cfg.DurationSeconds {
		t.Fatalf("duration mismatch: got %d want %d", gotCfg.DurationSeconds, cfg.DurationSeconds)
	}

	records, err := r.ReadInit()
	if err != nil {
		t.Fatalf("read init: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 machines in init listing, got %d", len(records))
	}

	ticks := r.Ticks()
	if len(ticks) == 0 {
		t.Fatal("expected at least one tick with recorded diffs")
	}

	_, linkDiffs, err := r.ReadTick(ticks[0])
	if err != nil {
		t.Fatalf("read tick 0: %v", err)
	}
	if len(linkDiffs) == 0 {
		t.Fatal("expected the first tick to emit the initial ISL link diff")
	}
}

func TestRunStopsEarlyOnCancellation(t *testing.T) {
	cfg := wholeEarthCfg()
	cfg.DurationSeconds = 1000
	var buf bytes.Buffer
	w := archive.NewWriter(&buf)

	sim := New(cfg, w, nil, nil)
	if err := sim.WritePreamble(); err != nil {
		t.Fatalf("preamble: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sim.Run(ctx); err != nil {
		t.Fatalf("expected clean return on cancellation, got %v", err)
	}
}

func TestWithTracerSpansEveryTick(t *testing.T) {
	cfg := wholeEarthCfg()
	var buf bytes.Buffer
	w := archive.NewWriter(&buf)

	var starts, ends int
	sim := New(cfg, w, nil, nil).WithTracer(func(ctx context.Context, tick int) (context.Context, func()) {
		starts++
		return ctx, func() { ends++ }
	})
	if err := sim.WritePreamble(); err != nil {
		t.Fatalf("preamble: %v", err)
	}
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if starts != cfg.Ticks() || ends != cfg.Ticks() {
		t.Fatalf("expected %d span starts/ends, got %d/%d", cfg.Ticks(), starts, ends)
	}
}
