package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAttributeConstructors(t *testing.T) {
	tests := []struct {
		name string
		attr Attribute
		key  string
		want any
	}{
		{"string", String("k", "v"), "k", "v"},
		{"int", Int("count", 42), "count", 42},
		{"int64", Int64("big", 1<<40), "big", int64(1 << 40)},
		{"float64", Float64("ratio", 0.5), "ratio", 0.5},
		{"bool", Bool("flag", true), "flag", true},
		{"duration", Duration("latency", 2*time.Second), "latency", 2 * time.Second},
		{"error", Error(errors.New("boom")), AttrError, "boom"},
		{"nil error", Error(nil), AttrError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("Expected key %q, got %q", tt.key, tt.attr.Key)
			}
			if tt.attr.Value != tt.want {
				t.Errorf("Expected value %v, got %v", tt.want, tt.attr.Value)
			}
		})
	}
}

func TestStatusCodeString(t *testing.T) {
	if StatusOK.String() != "ok" || StatusError.String() != "error" || StatusUnset.String() != "unset" {
		t.Errorf("Unexpected status names: %s %s %s", StatusOK, StatusError, StatusUnset)
	}
}

func TestNopProvider(t *testing.T) {
	ctx := context.Background()
	provider := Nop()

	spanCtx, span := provider.StartSpan(ctx, SpanTunnelRun, String(AttrTunnelRunID, "x"))
	if spanCtx != ctx {
		t.Errorf("Expected Nop StartSpan to return the same context")
	}
	span.SetAttributes(Int(AttrTunnelAttempt, 1))
	span.AddEvent(EventTunnelAttempt)
	span.RecordError(errors.New("boom"))
	span.SetStatus(StatusError, "boom")
	span.End()

	provider.Counter(MetricTunnelRuns).Add(ctx, 1)
	provider.Histogram(MetricTunnelRunnerDuration).Record(ctx, 1.5)
	provider.Trace(ctx, "trace")
	provider.Debug(ctx, "debug")
	provider.Info(ctx, "info")
	provider.Warn(ctx, "warn")
	provider.Error(ctx, "error")
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("Expected untouched string, got %q", got)
	}

	got := TruncateString("héllo wörld", 5)
	if !strings.HasPrefix(got, "héllo...") {
		t.Errorf("Expected rune-safe prefix, got %q", got)
	}
	if !strings.Contains(got, "total: 11 chars") {
		t.Errorf("Expected rune total in suffix, got %q", got)
	}

	long := strings.Repeat("a", DefaultMaxStringLength+1)
	if got := TruncateStringDefault(long); !strings.HasPrefix(got, strings.Repeat("a", DefaultMaxStringLength)+"...") {
		t.Errorf("Expected default truncation, got %d bytes", len(got))
	}
	if got := TruncateString(long, 0); got != TruncateStringDefault(long) {
		t.Errorf("Expected non-positive limit to use the default")
	}
}
