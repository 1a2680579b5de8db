package slotx

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCountPasses(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	reg := New(WithMetrics(m))

	node := NewNode[positronConfig]("positron/config", WithDefault(positronDefault()))
	handle := mustAttach(t, node, reg, mapStore{})

	if got := testutil.ToFloat64(m.attaches); got != 1 {
		t.Errorf("attaches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.servicedTotal.WithLabelValues("missing")); got != 1 {
		t.Errorf("serviced{missing} = %v, want 1", got)
	}

	if err := handle.Write(positronConfig{Up: 1}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	reg.ProcessWrites(MapBatch{})
	if got := testutil.ToFloat64(m.drainedTotal); got != 1 {
		t.Errorf("drained = %v, want 1", got)
	}

	if err := handle.Detach(); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}
	if got := testutil.ToFloat64(m.detaches); got != 1 {
		t.Errorf("detaches = %v, want 1", got)
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.attached()
	m.detached()
	m.serviced(outcomeDecoded)
	m.drained()
	m.encodeFailed()
}
