// Package performance samples the resource usage of the converter process.
package performance

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceMonitor monitors the resources of the current process and keeps
// the peak resident set size seen across samples
type ResourceMonitor struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
	peakRSS      uint64
	samples      int
	mu           sync.Mutex
}

// NewResourceMonitor creates a resource monitor
func NewResourceMonitor() *ResourceMonitor {
	rm := &ResourceMonitor{startTime: time.Now()}
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pids fit in int32
	if err == nil {
		rm.process = proc
		if cpuTime, err := proc.Times(); err == nil {
			rm.startCPUTime = cpuTime.Total()
		}
	}
	return rm
}

// ResourceUsage contains resource usage information
type ResourceUsage struct {
	CPUPercent            float64 `json:"cpu_percent"`
	MemoryRSS             uint64  `json:"memory_rss"`
	MemoryVMS             uint64  `json:"memory_vms"`
	HeapAlloc             uint64  `json:"heap_alloc"`
	SystemMemoryPercent   float64 `json:"system_memory_percent"`
	SystemMemoryAvailable uint64  `json:"system_memory_available"`
	GoroutineCount        int     `json:"goroutines"`
	ThreadCount           int32   `json:"threads"`
}

// Sample returns current resource usage and updates the peak RSS. Fields
// the platform cannot report are left zero.
func (rm *ResourceMonitor) Sample() ResourceUsage {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	var usage ResourceUsage

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	usage.HeapAlloc = memStats.HeapAlloc
	usage.GoroutineCount = runtime.NumGoroutine()

	if rm.process != nil {
		if cpuTime, err := rm.process.Times(); err == nil {
			if elapsed := time.Since(rm.startTime).Seconds(); elapsed > 0 {
				usage.CPUPercent = ((cpuTime.Total() - rm.startCPUTime) / elapsed) * 100
			}
		}
		if memInfo, err := rm.process.MemoryInfo(); err == nil {
			usage.MemoryRSS = memInfo.RSS
			usage.MemoryVMS = memInfo.VMS
		}
		usage.ThreadCount, _ = rm.process.NumThreads()
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		usage.SystemMemoryPercent = vmStat.UsedPercent
		usage.SystemMemoryAvailable = vmStat.Available
	}

	if usage.MemoryRSS > rm.peakRSS {
		rm.peakRSS = usage.MemoryRSS
	}
	rm.samples++
	return usage
}

// PeakRSS returns the highest RSS observed by Sample
func (rm *ResourceMonitor) PeakRSS() uint64 {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.peakRSS
}

// Samples returns the number of samples taken
func (rm *ResourceMonitor) Samples() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.samples
}
