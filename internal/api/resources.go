package api

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"netgdp/internal/metrics"
	"netgdp/logger"
)

// resourceSnapshot is one footprint sample served by
// /api/diagnostics/resources. Fan-out per request shows up as goroutines and
// cached payloads as process RSS.
type resourceSnapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	Goroutines int       `json:"goroutines"`
	ProcessRSS uint64    `json:"process_rss_bytes"`
	CPUPercent float64   `json:"host_cpu_percent"`
	MemoryPct  float64   `json:"host_memory_percent"`
}

var (
	// cpuPercentFn reports host CPU use since its previous call.
	cpuPercentFn = func(ctx context.Context) (float64, error) {
		pct, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil || len(pct) == 0 {
			return 0, err
		}
		return pct[0], nil
	}
	memoryPercentFn = func(ctx context.Context) (float64, error) {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return 0, err
		}
		return vm.UsedPercent, nil
	}
	processRSSFn = func(ctx context.Context) (uint64, error) {
		p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
		if err != nil {
			return 0, err
		}
		mi, err := p.MemoryInfoWithContext(ctx)
		if err != nil {
			return 0, err
		}
		return mi.RSS, nil
	}
)

// resourceSampler keeps the last limit samples, one per interval.
type resourceSampler struct {
	mu       sync.Mutex
	history  []resourceSnapshot
	limit    int
	interval time.Duration
	log      *logger.Log

	cancel context.CancelFunc
	done   chan struct{}
}

func newResourceSampler(limit int, interval time.Duration, log *logger.Log) *resourceSampler {
	if limit <= 0 {
		limit = 120
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &resourceSampler{limit: limit, interval: interval, log: log}
}

func (s *resourceSampler) start(ctx context.Context) {
	if s == nil || s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

func (s *resourceSampler) stop() {
	if s == nil || s.done == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *resourceSampler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	entry := s.log.WithComponent("resource_sampler")
	for {
		snap, err := s.sample(ctx)
		if err != nil {
			entry.WithError(err).Debug("resource sample failed")
		} else {
			s.record(snap)
			metrics.EmitMetric(s.log, "api", "process_rss_bytes", snap.ProcessRSS, "gauge", nil)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sample fails only when the process itself cannot be read; host figures
// are best effort and stay zero on error.
func (s *resourceSampler) sample(ctx context.Context) (resourceSnapshot, error) {
	rss, err := processRSSFn(ctx)
	if err != nil {
		return resourceSnapshot{}, fmt.Errorf("process rss: %w", err)
	}
	snap := resourceSnapshot{
		Timestamp:  time.Now(),
		Goroutines: runtime.NumGoroutine(),
		ProcessRSS: rss,
	}
	if pct, err := cpuPercentFn(ctx); err == nil {
		snap.CPUPercent = pct
	}
	if pct, err := memoryPercentFn(ctx); err == nil {
		snap.MemoryPct = pct
	}
	return snap, nil
}

func (s *resourceSampler) record(snap resourceSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == s.limit {
		copy(s.history, s.history[1:])
		s.history = s.history[:s.limit-1]
	}
	s.history = append(s.history, snap)
}

func (s *resourceSampler) snapshot() []resourceSnapshot {
	if s == nil {
		return []resourceSnapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]resourceSnapshot{}, s.history...)
}
