package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatal("generated name must not be empty")
	}
	ctx := context.Background()

	rec.Observe(ctx, "stock_batch", true, 40*time.Millisecond)
	rec.Observe(ctx, "stock_batch", true, 10*time.Millisecond)
	rec.Observe(ctx, "stock_batch", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored

	snap := rec.Snapshot()
	if snap.DurationsMS["stock_batch"] != 55 {
		t.Fatalf("durations = %v", snap.DurationsMS)
	}
	if snap.Results["stock_batch"]["success"] != 2 || snap.Results["stock_batch"]["error"] != 1 {
		t.Fatalf("results = %v", snap.Results)
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)

	_, span := tracer.Start(context.Background(), "fulfill_order")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "harvest_batch")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Operation != "fulfill_order" || entries[0].Status != "success" {
		t.Fatalf("first entry: %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("second entry: %+v", entries[1])
	}
	if lines := strings.Count(strings.TrimSpace(buf.String()), "\n") + 1; lines != 2 {
		t.Fatalf("expected 2 JSON lines, got %d: %s", lines, buf.String())
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()

	rec.Observe(ctx, "accrue_cost", true, 12*time.Millisecond)
	rec.Observe(ctx, "accrue_cost", false, 3*time.Millisecond)

	got := testutil.ToFloat64(rec.results.WithLabelValues("accrue_cost", "success"))
	if got != 1 {
		t.Fatalf("success counter = %v", got)
	}
	got = testutil.ToFloat64(rec.results.WithLabelValues("accrue_cost", "error"))
	if got != 1 {
		t.Fatalf("error counter = %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations); n != 1 {
		t.Fatalf("histogram series = %d", n)
	}

	// Double registration against the same registry must fail.
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestOTelTracerAdapter(t *testing.T) {
	tracer := NewOTelTracer(nil) // global provider, noop by default
	ctx, span := tracer.Start(context.Background(), "stock_batch")
	if ctx == nil || span == nil {
		t.Fatal("start must return a context and span")
	}
	span.End(nil)

	_, span = tracer.Start(context.Background(), "fulfill_order")
	span.End(errors.New("boom"))
}

func TestZapLoggerAdapter(t *testing.T) {
	zapCore, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(zapCore))

	logger.Debug("operation committed", "op", "stock_batch")
	logger.Error("operation failed", "op", "stock_batch", "error", "boom")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Message != "operation committed" || entries[0].ContextMap()["op"] != "stock_batch" {
		t.Fatalf("first entry: %+v", entries[0])
	}
	if entries[1].Level != zap.ErrorLevel {
		t.Fatalf("second entry level: %v", entries[1].Level)
	}

	// Nil logger falls back to a nop and must not panic.
	NewZapLogger(nil).Info("noop")
}
