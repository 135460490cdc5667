package nodes

import (
	"testing"

	"github.com/flowmesh/agentgraph/graph"
)

func TestLoopMaxIterationsDefaultsToUnset(t *testing.T) {
	n, err := newLoop("l1", nil)
	if err != nil {
		t.Fatalf("newLoop: %v", err)
	}
	if got := n.(*Loop).MaxIterations(); got != 0 {
		t.Errorf("MaxIterations() = %d, want 0 (use the executor default)", got)
	}
}

func TestLoopMaxIterationsAcceptsIntOrFloat(t *testing.T) {
	n, err := newLoop("l1", map[string]any{"max_iterations": 5})
	if err != nil {
		t.Fatalf("newLoop: %v", err)
	}
	if got := n.(*Loop).MaxIterations(); got != 5 {
		t.Errorf("MaxIterations() = %d, want 5", got)
	}

	n2, err := newLoop("l2", map[string]any{"max_iterations": float64(7)})
	if err != nil {
		t.Fatalf("newLoop: %v", err)
	}
	if got := n2.(*Loop).MaxIterations(); got != 7 {
		t.Errorf("MaxIterations() = %d, want 7 (decoded from a JSON float64)", got)
	}
}

func TestLoopRunReplaysWhateverTheDriverStamped(t *testing.T) {
	n, err := newLoop("l1", nil)
	if err != nil {
		t.Fatalf("newLoop: %v", err)
	}
	n.SetOutput(graph.SourceTypeEnd, []any{"a", "b"})

	events := collectEvents(t, n, &graph.ChatLog{})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	got, ok := events[0].Payload.Value.([]any)
	if !ok || len(got) != 2 {
		t.Errorf("payload = %v, want [a b]", events[0].Payload.Value)
	}
}
