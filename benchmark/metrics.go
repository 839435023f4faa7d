// Package benchmark - Functionality for running benchmarks.
package benchmark

import (
	"time"

	"github.com/nvr-ai/go-nms/providers"
)

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario       Scenario                  `json:"scenario"`
	Timestamp      time.Time                 `json:"timestamp"`
	Backend        providers.ProviderBackend `json:"backend"`
	TotalDuration  time.Duration             `json:"total_duration"`
	MeanDuration   time.Duration             `json:"mean_duration"`
	P95Duration    time.Duration             `json:"p95_duration"`
	BoxesPerSecond float64                   `json:"boxes_per_second"`
	KeptCount      int                       `json:"kept_count"`
	AgreesWithCPU  bool                      `json:"agrees_with_cpu"`
	MemoryStats    MemoryMetrics             `json:"memory_stats"`
	CPUStats       CPUMetrics                `json:"cpu_stats"`
	ErrorRate      float64                   `json:"error_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// CPUMetrics captures CPU usage statistics
type CPUMetrics struct {
	NumCPU     int `json:"num_cpu"`
	GOMAXPROCS int `json:"gomaxprocs"`
}
