package performance

import (
	"os"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
)

// ProfilerConfig names the profile outputs. Empty paths disable a profile.
type ProfilerConfig struct {
	CPUProfile string
	MemProfile string
}

// Enabled reports whether any profile is requested
func (c ProfilerConfig) Enabled() bool {
	return c.CPUProfile != "" || c.MemProfile != ""
}

// Profiler captures pprof CPU and heap profiles around a conversion
type Profiler struct {
	config  ProfilerConfig
	cpuFile *os.File
	mu      sync.Mutex
	stopped bool
}

// StartProfiler starts CPU profiling when configured. The heap profile is
// written by Stop.
func StartProfiler(config ProfilerConfig) (*Profiler, error) {
	p := &Profiler{config: config}
	if config.CPUProfile == "" {
		return p, nil
	}

	f, err := os.Create(config.CPUProfile)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create CPU profile").
			WithDetail("path", config.CPUProfile)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to start CPU profile")
	}
	p.cpuFile = f
	return p, nil
}

// Stop ends CPU profiling and writes the heap profile. Only the first call
// has an effect.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	p.stopped = true

	var firstErr error
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := p.cpuFile.Close(); err != nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeInternal, "failed to close CPU profile")
		}
	}

	if p.config.MemProfile != "" {
		if err := writeHeapProfile(p.config.MemProfile); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create memory profile").
			WithDetail("path", path)
	}
	defer f.Close()

	runtime.GC() // get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write memory profile").
			WithDetail("path", path)
	}
	return nil
}
