package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCycle(nil, 0, 3, 1750000000)
	if got := testutil.ToFloat64(m.CyclesTotal); got != 1 {
		t.Fatalf("expected 1 cycle, got %f", got)
	}
	if got := testutil.ToFloat64(m.FailuresTotal); got != 0 {
		t.Fatalf("expected 0 failures, got %f", got)
	}
	if got := testutil.ToFloat64(m.SensorsReported); got != 3 {
		t.Fatalf("expected 3 sensors reported, got %f", got)
	}
	if got := testutil.ToFloat64(m.LastSuccessTime); got != 1750000000 {
		t.Fatalf("expected last success timestamp set, got %f", got)
	}

	m.ObserveCycle(errors.New("down"), 1, 0, 1750000000)
	if got := testutil.ToFloat64(m.CyclesTotal); got != 2 {
		t.Fatalf("expected 2 cycles, got %f", got)
	}
	if got := testutil.ToFloat64(m.FailuresTotal); got != 1 {
		t.Fatalf("expected 1 failure, got %f", got)
	}
	if got := testutil.ToFloat64(m.FailureStreak); got != 1 {
		t.Fatalf("expected streak 1, got %f", got)
	}
	// A failed cycle must not clobber the sensors gauge.
	if got := testutil.ToFloat64(m.SensorsReported); got != 3 {
		t.Fatalf("expected sensors gauge retained, got %f", got)
	}
}
