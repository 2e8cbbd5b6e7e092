package extractor

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pulpoai/agentcore/internal/observability"
	"github.com/pulpoai/agentcore/internal/oracle"
	"github.com/pulpoai/agentcore/pkg/types"
)

func newTestLogger() *observability.Logger {
	return observability.MustNewLogger(observability.LogConfig{Output: io.Discard})
}

func TestExtract_EmptyInputShortCircuits(t *testing.T) {
	e := New(oracle.NewScripted(), 0.7, newTestLogger(), nil)
	out, err := e.Extract(context.Background(), "  ", Hints{}, time.Now(), "UTC", "ws1")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if out.Intent != types.IntentOther {
		t.Errorf("Intent = %v, want IntentOther", out.Intent)
	}
}

func TestExtract_ValidOracleOutputSkipsFallback(t *testing.T) {
	o := oracle.NewScripted(oracle.ScriptedResponse{
		JSON: json.RawMessage(`{"intent":"info_hours","slots":{},"confidence":0.9,"reasoning":"ok"}`),
	})
	metrics := observability.NewMetrics()
	before := testutil.ToFloat64(metrics.ExtractorFallbackTotal.WithLabelValues("ws1"))
	e := New(o, 0.7, newTestLogger(), metrics)

	out, err := e.Extract(context.Background(), "a que hora abren", Hints{}, time.Now(), "UTC", "ws1")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if out.Intent != types.IntentInfoHours {
		t.Errorf("Intent = %v, want info_hours", out.Intent)
	}
	if out.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want the oracle's 0.9", out.Confidence)
	}
	if after := testutil.ToFloat64(metrics.ExtractorFallbackTotal.WithLabelValues("ws1")); after != before {
		t.Errorf("ExtractorFallbackTotal = %v, want unchanged %v", after, before)
	}
}

func TestExtract_OracleErrorFallsBackAndRecordsMetric(t *testing.T) {
	o := oracle.NewScripted(oracle.ScriptedResponse{Err: context.DeadlineExceeded})
	metrics := observability.NewMetrics()
	before := testutil.ToFloat64(metrics.ExtractorFallbackTotal.WithLabelValues("ws-fallback-test"))
	e := New(o, 0.7, newTestLogger(), metrics)

	out, err := e.Extract(context.Background(), "quiero un turno", Hints{}, time.Now(), "UTC", "ws-fallback-test")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if out.Slots == nil {
		t.Error("expected fallback output to carry a (possibly empty) slots map")
	}
	after := testutil.ToFloat64(metrics.ExtractorFallbackTotal.WithLabelValues("ws-fallback-test"))
	if after != before+1 {
		t.Errorf("ExtractorFallbackTotal = %v, want %v", after, before+1)
	}
}

func TestExtract_SchemaInvalidOracleOutputFallsBack(t *testing.T) {
	o := oracle.NewScripted(oracle.ScriptedResponse{JSON: json.RawMessage(`{"not_a_valid_field": true}`)})
	e := New(o, 0.7, newTestLogger(), nil)

	out, err := e.Extract(context.Background(), "quiero un turno", Hints{}, time.Now(), "UTC", "ws1")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if out.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want fallback confidence 0.5", out.Confidence)
	}
}
