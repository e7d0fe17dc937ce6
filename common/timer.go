package common

import (
	"sync"
	"time"
)

// GameTimer measures total and per-frame time in seconds. Tick advances it once per frame.
type GameTimer struct {
	mu *sync.Mutex

	now   func() time.Time
	start time.Time
	last  time.Time
	total float32
	delta float32
}

// NewGameTimer returns a timer started now.
func NewGameTimer() *GameTimer {
	return newGameTimer(time.Now)
}

func newGameTimer(now func() time.Time) *GameTimer {
	t := now()
	return &GameTimer{mu: &sync.Mutex{}, now: now, start: t, last: t}
}

// Tick records the time since the previous Tick as the frame delta.
func (g *GameTimer) Tick() {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.now()
	g.delta = float32(t.Sub(g.last).Seconds())
	g.total = float32(t.Sub(g.start).Seconds())
	g.last = t
}

// Reset restarts the timer at zero.
func (g *GameTimer) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.start = g.now()
	g.last = g.start
	g.total, g.delta = 0, 0
}

// TotalTime returns the seconds between the start and the last Tick.
func (g *GameTimer) TotalTime() float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.total
}

// DeltaTime returns the seconds between the last two Ticks.
func (g *GameTimer) DeltaTime() float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.delta
}
