// Package memctrl implements MemoryController: a cross-cutting watchdog
// that reads process RSS on a schedule and drives BrowserPool's release
// and restart paths under memory pressure (spec.md §4.5).
package memctrl

import (
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// Thresholds in bytes, matching the §4.5 RSS table.
const (
	thresholdLow      = 400 * 1024 * 1024
	thresholdMedium   = 800 * 1024 * 1024
	thresholdCritical = 1500 * 1024 * 1024

	rollingWindowSize = 10
	trendBand         = 0.05 // ±5%
)

// Trend classifies the rolling RSS window.
type Trend string

const (
	TrendStable     Trend = "stable"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// Pool is the subset of browserpool.Pool the controller drives. Defined
// here (rather than imported) so memctrl has no compile-time dependency
// on browserpool, matching the cross-cutting role described in spec.md §5.
type Pool interface {
	ReleaseUnusedContexts() int
	ForceCleanupAndRestart() error
}

// ActiveRequestCounter reports how many requests are currently admitted,
// used by the idle-timer rule.
type ActiveRequestCounter interface {
	ActiveRequests() int
}

// Config controls the controller's schedule.
type Config struct {
	MetricsInterval time.Duration // default: 10s
	IdleInterval    time.Duration // default: 5m
	IdleRSSBytes    int64         // default: 500MB
}

// Controller runs the RSS-driven watchdog loop.
type Controller struct {
	cfg     Config
	pool    Pool
	counter ActiveRequestCounter
	readRSS func() (int64, error)

	mu     sync.Mutex
	window []int64

	stopCh chan struct{}
}

// ReadRSS reports the current process RSS in bytes. Exported so crawler
// can apply the same mid-crawl RSS check named in spec.md §4.4 step 4
// without duplicating the platform-specific read.
func ReadRSS() (int64, error) {
	return readProcessRSS()
}

// New constructs a Controller against pool and counter, applying §4.5
// defaults for zero-valued config fields.
func New(cfg Config, pool Pool, counter ActiveRequestCounter) *Controller {
	if cfg.MetricsInterval <= 0 {
		cfg.MetricsInterval = 10 * time.Second
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = 5 * time.Minute
	}
	if cfg.IdleRSSBytes <= 0 {
		cfg.IdleRSSBytes = 500 * 1024 * 1024
	}
	return &Controller{
		cfg:     cfg,
		pool:    pool,
		counter: counter,
		readRSS: readProcessRSS,
		stopCh:  make(chan struct{}),
	}
}

// Start runs the metrics and idle loops in background goroutines.
func (c *Controller) Start() {
	go c.metricsLoop()
	go c.idleLoop()
}

// Stop terminates both loops.
func (c *Controller) Stop() { close(c.stopCh) }

func (c *Controller) metricsLoop() {
	ticker := time.NewTicker(c.cfg.MetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.tick()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Controller) idleLoop() {
	ticker := time.NewTicker(c.cfg.IdleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.idleTick()
		case <-c.stopCh:
			return
		}
	}
}

// tick reads RSS, records it in the rolling window, and applies the
// threshold-banded action.
func (c *Controller) tick() {
	rss, err := c.readRSS()
	if err != nil {
		slog.Warn("memctrl: failed to read process RSS", "err", err)
		return
	}
	trend := c.record(rss)
	c.applyThreshold(rss, trend)
}

func (c *Controller) record(rss int64) Trend {
	c.mu.Lock()
	c.window = append(c.window, rss)
	if len(c.window) > rollingWindowSize {
		c.window = c.window[len(c.window)-rollingWindowSize:]
	}
	w := append([]int64(nil), c.window...)
	c.mu.Unlock()
	return trendOf(w)
}

func trendOf(window []int64) Trend {
	if len(window) < 2 {
		return TrendStable
	}
	first, last := window[0], window[len(window)-1]
	if first == 0 {
		return TrendStable
	}
	delta := float64(last-first) / float64(first)
	switch {
	case delta > trendBand:
		return TrendIncreasing
	case delta < -trendBand:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func (c *Controller) applyThreshold(rss int64, trend Trend) {
	switch {
	case rss < thresholdLow:
		return
	case rss < thresholdMedium:
		c.pool.ReleaseUnusedContexts()
		debug.FreeOSMemory()
	case rss < thresholdCritical:
		released := c.pool.ReleaseUnusedContexts()
		debug.FreeOSMemory()
		if released == 0 {
			slog.Warn("memctrl: aggressive release freed nothing, scheduling restart", "rss", rss, "trend", trend)
			time.AfterFunc(2*time.Second, func() {
				if err := c.pool.ForceCleanupAndRestart(); err != nil {
					slog.Error("memctrl: scheduled restart failed", "err", err)
				}
			})
		}
	default:
		slog.Warn("memctrl: critical RSS, releasing immediately", "rss", rss, "trend", trend)
		released := c.pool.ReleaseUnusedContexts()
		debug.FreeOSMemory()
		debug.FreeOSMemory()
		if released == 0 {
			slog.Warn("memctrl: critical release freed nothing, scheduling restart", "rss", rss, "trend", trend)
			time.AfterFunc(2*time.Second, func() {
				if err := c.pool.ForceCleanupAndRestart(); err != nil {
					slog.Error("memctrl: scheduled restart failed", "err", err)
				}
			})
		}
	}
}

func (c *Controller) idleTick() {
	if c.counter != nil && c.counter.ActiveRequests() > 1 {
		return
	}
	rss, err := c.readRSS()
	if err != nil {
		return
	}
	if rss > c.cfg.IdleRSSBytes {
		slog.Info("memctrl: idle cleanup", "rss", rss)
		c.pool.ReleaseUnusedContexts()
		debug.FreeOSMemory()
	}
}

// Snapshot is a point-in-time view of the controller's state.
type Snapshot struct {
	RSSBytes  int64  `json:"rss_bytes"`
	Trend     Trend  `json:"trend"`
	NumGC     uint32 `json:"num_gc"`
	HeapBytes uint64 `json:"heap_bytes"`
}

// Snapshot reads current RSS and runtime stats without applying any
// thresholded action.
func (c *Controller) Snapshot() Snapshot {
	rss, _ := c.readRSS()
	c.mu.Lock()
	w := append([]int64(nil), c.window...)
	c.mu.Unlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Snapshot{
		RSSBytes:  rss,
		Trend:     trendOf(w),
		NumGC:     ms.NumGC,
		HeapBytes: ms.HeapInuse,
	}
}
