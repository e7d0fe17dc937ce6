package common

import (
	"testing"
	"time"
)

func TestGameTimer(t *testing.T) {
	base := time.Unix(100, 0)
	now := base
	g := newGameTimer(func() time.Time { return now })

	now = base.Add(250 * time.Millisecond)
	g.Tick()
	now = base.Add(time.Second)
	g.Tick()

	if g.DeltaTime() != 0.75 || g.TotalTime() != 1 {
		t.Fatalf("delta %v total %v", g.DeltaTime(), g.TotalTime())
	}

	g.Reset()
	if g.DeltaTime() != 0 || g.TotalTime() != 0 {
		t.Fatalf("after Reset: delta %v total %v", g.DeltaTime(), g.TotalTime())
	}
}
