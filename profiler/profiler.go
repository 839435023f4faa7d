// Package profiler - operation timing and metric tracking for benchmark runs.
package profiler

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetricsCollector defines the interface for collecting custom metrics.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// Profiler tracks operation timings and custom metrics. It is safe for
// concurrent use.
type Profiler struct {
	mu            sync.Mutex
	startTime     time.Time
	startGC       uint32
	operations    map[string]*TimeTracker
	customMetrics map[string]*MetricTracker
	collectors    []MetricsCollector
}

// MetricTracker tracks statistics for a custom metric.
type MetricTracker struct {
	sum   float64
	min   float64
	max   float64
	count int64
	last  float64
}

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
}

// OperationStats summarizes the timings of one operation.
type OperationStats struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// MetricStats summarizes the values of one metric.
type MetricStats struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Last  float64 `json:"last"`
}

// Snapshot is a point-in-time copy of everything a Profiler tracked.
type Snapshot struct {
	Uptime     time.Duration             `json:"uptime"`
	HeapAlloc  uint64                    `json:"heapAlloc"`
	NumGC      uint32                    `json:"numGC"`
	Operations map[string]OperationStats `json:"operations"`
	Metrics    map[string]MetricStats    `json:"metrics"`
}

// New creates a profiler whose clock and GC counter start now.
//
// @example
// prof := profiler.New()
// done := prof.StartOperation("suppress")
// result, err := provider.Suppress(ctx, set, scores, params)
// done()
func New() *Profiler {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return &Profiler{
		startTime:     time.Now(),
		startGC:       ms.NumGC,
		operations:    make(map[string]*TimeTracker),
		customMetrics: make(map[string]*MetricTracker),
	}
}

// AddMetricsCollector registers a collector that is polled on every Snapshot.
func (p *Profiler) AddMetricsCollector(collector MetricsCollector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collectors = append(p.collectors, collector)
}

// StartOperation starts timing an operation; call the returned function to
// stop the clock.
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.RecordDuration(name, time.Since(start))
	}
}

// RecordDuration adds one timing sample for an operation.
func (p *Profiler) RecordDuration(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.operations[name]
	if !ok {
		t = &TimeTracker{minTime: d, maxTime: d}
		p.operations[name] = t
	}
	t.durations = append(t.durations, d)
	t.totalTime += d
	t.minTime = min(t.minTime, d)
	t.maxTime = max(t.maxTime, d)
}

// RecordMetric adds one sample of a custom metric.
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recordMetric(name, value)
}

func (p *Profiler) recordMetric(name string, value float64) {
	m, ok := p.customMetrics[name]
	if !ok {
		m = &MetricTracker{min: value, max: value}
		p.customMetrics[name] = m
	}
	m.sum += value
	m.count++
	m.min = min(m.min, value)
	m.max = max(m.max, value)
	m.last = value
}

// Snapshot polls the collectors and summarizes all tracked data.
func (p *Profiler) Snapshot() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.collectors {
		for name, v := range c.CollectMetrics() {
			p.recordMetric(name, v)
		}
	}

	s := Snapshot{
		Uptime:     time.Since(p.startTime),
		HeapAlloc:  ms.HeapAlloc,
		NumGC:      ms.NumGC - p.startGC,
		Operations: make(map[string]OperationStats, len(p.operations)),
		Metrics:    make(map[string]MetricStats, len(p.customMetrics)),
	}
	for name, t := range p.operations {
		s.Operations[name] = t.stats()
	}
	for name, m := range p.customMetrics {
		s.Metrics[name] = MetricStats{
			Count: m.count,
			Min:   m.min,
			Max:   m.max,
			Mean:  m.sum / float64(m.count),
			Last:  m.last,
		}
	}
	return s
}

func (t *TimeTracker) stats() OperationStats {
	sorted := make([]time.Duration, len(t.durations))
	copy(sorted, t.durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := int64(len(sorted))
	return OperationStats{
		Count: n,
		Total: t.totalTime,
		Min:   t.minTime,
		Max:   t.maxTime,
		Mean:  t.totalTime / time.Duration(n),
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
		P99:   percentile(sorted, 0.99),
	}
}

// percentile uses the nearest-rank method on sorted samples.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(q*float64(len(sorted)) + 0.5)
	rank = min(max(rank, 1), len(sorted))
	return sorted[rank-1]
}

// Report logs a snapshot, one line per operation and metric.
func (p *Profiler) Report(logger *zap.Logger) {
	s := p.Snapshot()
	logger.Info("profile",
		zap.Duration("uptime", s.Uptime),
		zap.Uint64("heapAlloc", s.HeapAlloc),
		zap.Uint32("numGC", s.NumGC),
	)

	names := make([]string, 0, len(s.Operations))
	for name := range s.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o := s.Operations[name]
		logger.Info("operation",
			zap.String("name", name),
			zap.Int64("count", o.Count),
			zap.Duration("mean", o.Mean),
			zap.Duration("p95", o.P95),
			zap.Duration("max", o.Max),
		)
	}

	names = names[:0]
	for name := range s.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := s.Metrics[name]
		logger.Info("metric",
			zap.String("name", name),
			zap.Int64("count", m.Count),
			zap.Float64("mean", m.Mean),
			zap.Float64("min", m.Min),
			zap.Float64("max", m.Max),
		)
	}
}
