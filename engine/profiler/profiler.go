package profiler

import (
	"fmt"
	"log"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Profiler tracks frame rate, memory statistics and the CPU time spent recording each render
// pass. Outputs stats to the log at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	logPasses   bool
	passOrder   []string
	passTotals  map[string]time.Duration
	passSamples map[string]int
}

// PassTiming is the average recording time of one pass over the current interval.
type PassTiming struct {
	Name    string
	Average time.Duration
	Samples int
}

// NewProfiler creates a new Profiler with the given options.
// Update interval defaults to 1 second and pass timings are logged.
//
// Parameters:
//   - options: functional options configuring the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		lastTime:       time.Now(),
		updateInterval: time.Second,
		logPasses:      true,
		passTotals:     make(map[string]time.Duration),
		passSamples:    make(map[string]int),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// TimePass starts timing one pass and returns the function that stops it.
//
// Parameters:
//   - name: the pass name
//
// Returns:
//   - func(): records the elapsed time when called
func (p *Profiler) TimePass(name string) func() {
	start := time.Now()
	return func() {
		p.RecordPass(name, time.Since(start))
	}
}

// RecordPass adds one sample for the named pass. Passes are reported in first-seen order.
func (p *Profiler) RecordPass(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.passSamples[name]; !ok {
		p.passOrder = append(p.passOrder, name)
	}
	p.passTotals[name] += d
	p.passSamples[name]++
}

// PassTimings returns the average time of every pass recorded since the last logged interval.
func (p *Profiler) PassTimings() []PassTiming {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PassTiming, 0, len(p.passOrder))
	for _, name := range p.passOrder {
		n := p.passSamples[name]
		if n == 0 {
			continue
		}
		out = append(out, PassTiming{Name: name, Average: p.passTotals[name] / time.Duration(n), Samples: n})
	}
	return out
}

// resetPasses clears the pass samples while keeping the reporting order.
func (p *Profiler) resetPasses() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for name := range p.passTotals {
		p.passTotals[name] = 0
		p.passSamples[name] = 0
	}
}

func formatPassTimings(timings []PassTiming) string {
	parts := make([]string, len(timings))
	for i, t := range timings {
		parts[i] = fmt.Sprintf("%s: %.3f ms", t.Name, float64(t.Average.Microseconds())/1000)
	}
	return strings.Join(parts, " | ")
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed >= p.updateInterval {
		fps := float64(p.frameCount) / elapsed.Seconds()

		runtime.ReadMemStats(&p.memStats)
		// Alloc: Bytes of allocated heap objects (live memory)
		// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
		// Sys: Total bytes of memory obtained from the OS (actual process footprint)
		allocMB := float64(p.memStats.Alloc) / 1024 / 1024
		sysMB := float64(p.memStats.Sys) / 1024 / 1024

		// Calculate allocation rate (MB/sec)
		allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
		allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

		// Calculate GC pause stats (last pause and max recent pause)
		gcCount := p.memStats.NumGC
		var lastPauseUs, maxPauseUs uint64
		if gcCount > 0 {
			// PauseNs is a circular buffer of last 256 GC pauses
			lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

			// Find max pause since last tick
			startIdx := p.lastGCCount
			if gcCount-startIdx > 256 {
				startIdx = gcCount - 256
			}
			for i := startIdx; i < gcCount; i++ {
				pause := p.memStats.PauseNs[i%256] / 1000
				if pause > maxPauseUs {
					maxPauseUs = pause
				}
			}
		}

		log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
			fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

		if timings := p.PassTimings(); p.logPasses && len(timings) > 0 {
			log.Printf("[Profiler] Passes: %s", formatPassTimings(timings))
		}
		p.resetPasses()

		p.frameCount = 0
		p.lastTime = currentTime
		p.lastGCCount = gcCount
		p.lastTotalAlloc = p.memStats.TotalAlloc
		return true
	}

	return false
}
