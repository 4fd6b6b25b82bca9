package utils

import (
	"testing"
	"time"
)

func TestTimer_Phases(t *testing.T) {
	timer := NewTimer("import")

	pt := timer.Start("nodes")
	time.Sleep(5 * time.Millisecond)
	d := pt.Stop()

	if d <= 0 {
		t.Errorf("expected positive duration, got %v", d)
	}
	if timer.GetDuration("nodes") != d {
		t.Error("GetDuration should return the recorded duration")
	}

	// Stopping twice keeps the first duration.
	if pt.Stop() != d {
		t.Error("second Stop should return the original duration")
	}
}

func TestTimer_PhaseOrder(t *testing.T) {
	timer := NewTimer("import")
	timer.Start("scan").Stop()
	timer.Start("nodes").Stop()
	timer.Start("relationships").Stop()

	phases := timer.GetPhases()
	if len(phases) != 3 {
		t.Fatalf("expected 3 phases, got %d", len(phases))
	}
	want := []string{"scan", "nodes", "relationships"}
	for i, p := range phases {
		if p.Name != want[i] {
			t.Errorf("phase %d = %q, want %q", i, p.Name, want[i])
		}
	}
}

func TestTimer_TimeFunc(t *testing.T) {
	timer := NewTimer("import")

	called := false
	timer.TimeFunc("build", func() { called = true })
	if !called {
		t.Error("TimeFunc should invoke the function")
	}

	_, err := timer.TimeFuncWithError("flush", func() error { return nil })
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTimer_ToMap(t *testing.T) {
	timer := NewTimer("import")
	timer.Start("nodes").Stop()

	m := timer.ToMap()
	if m["name"] != "import" {
		t.Errorf("name = %v", m["name"])
	}
	phases, ok := m["phases"].([]map[string]interface{})
	if !ok || len(phases) != 1 || phases[0]["name"] != "nodes" {
		t.Errorf("unexpected phases payload: %v", m["phases"])
	}
}

func TestNullTimer(t *testing.T) {
	pt := NullTimer.Start("anything")
	if pt.Stop() != 0 {
		t.Error("disabled timer should report zero durations")
	}
	if NullTimer.Summary() != "" {
		t.Error("disabled timer should produce no summary")
	}
}
