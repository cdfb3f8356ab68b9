package observability

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestObserveTickUpdatesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveTick(0, 5*time.Millisecond, 12, 3, 2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one registered metric family")
	}
	var found bool
	for _, f := range families {
		if f.GetName() != "celestial_satellites_active" {
			continue
		}
		found = true
		if got := f.GetMetric()[0].GetGauge().GetValue(); got != 12 {
			t.Fatalf("satellites_active gauge = %v, want 12", got)
		}
	}
	if !found {
		t.Fatal("expected the satellites_active gauge to be registered")
	}
}

func TestTracerProviderWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTracerProvider(&buf)
	if err != nil {
		t.Fatalf("new tracer provider: %v", err)
	}
	defer tp.Shutdown(context.Background())

	_, span := StartTick(context.Background(), 1)
	span.End()

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected the stdout exporter to write the span")
	}
}
