package profiler

import (
	"strings"
	"testing"
	"time"
)

func TestPassTimingsAverageInFirstSeenOrder(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(time.Hour))
	p.RecordPass("GBuffer", 2*time.Millisecond)
	p.RecordPass("Shadow Map", time.Millisecond)
	p.RecordPass("GBuffer", 4*time.Millisecond)

	got := p.PassTimings()
	if len(got) != 2 {
		t.Fatalf("got %d timings, want 2", len(got))
	}
	if got[0].Name != "GBuffer" || got[0].Average != 3*time.Millisecond || got[0].Samples != 2 {
		t.Errorf("first timing = %+v", got[0])
	}
	if got[1].Name != "Shadow Map" || got[1].Average != time.Millisecond {
		t.Errorf("second timing = %+v", got[1])
	}
}

func TestTickResetsPassTimings(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(0), WithPassTimings(false))
	stop := p.TimePass("FXAA")
	stop()
	if len(p.PassTimings()) != 1 {
		t.Fatal("TimePass recorded nothing")
	}
	if !p.Tick() {
		t.Fatal("Tick did not log with a zero interval")
	}
	if got := p.PassTimings(); len(got) != 0 {
		t.Fatalf("timings after Tick = %+v", got)
	}
}

func TestTickWaitsForInterval(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(time.Hour))
	if p.Tick() {
		t.Fatal("Tick logged before the interval elapsed")
	}
}

func TestFormatPassTimings(t *testing.T) {
	got := formatPassTimings([]PassTiming{
		{Name: "Tone Mapping", Average: 1500 * time.Microsecond},
		{Name: "FXAA", Average: 250 * time.Microsecond},
	})
	if !strings.Contains(got, "Tone Mapping: 1.500 ms") || !strings.Contains(got, "FXAA: 0.250 ms") {
		t.Fatalf("formatPassTimings = %q", got)
	}
}
