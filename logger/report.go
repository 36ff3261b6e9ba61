package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type upstreamStat struct {
	calls int64
	bytes int64
}

type componentStat struct {
	warns  int64
	errors int64
}

var (
	components sync.Map // map[string]*componentStat
	upstreams  sync.Map // map[string]*upstreamStat
)

// ReportSink receives every runtime report after it is logged.
type ReportSink func(ctx context.Context, fields Fields)

func componentFor(name string) *componentStat {
	v, _ := components.LoadOrStore(name, &componentStat{})
	return v.(*componentStat)
}

func recordWarn(component string) {
	atomic.AddInt64(&componentFor(component).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&componentFor(component).errors, 1)
}

// RecordUpstreamCall counts one response body read from an upstream provider.
func RecordUpstreamCall(provider string, size int) {
	v, _ := upstreams.LoadOrStore(provider, &upstreamStat{})
	us := v.(*upstreamStat)
	atomic.AddInt64(&us.calls, 1)
	atomic.AddInt64(&us.bytes, int64(size))
}

// StartReport logs a runtime report every interval until ctx is cancelled.
func StartReport(ctx context.Context, log *Log, interval time.Duration, sinks ...ReportSink) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fields := collectReport()
				log.WithComponent("report").WithFields(fields).Info("runtime report")
				for _, sink := range sinks {
					sink(ctx, fields)
				}
			}
		}
	}()
}

func collectReport() Fields {
	cpuPct := 0.0
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		cpuPct = pct[0]
	}
	memoryMB := int64(0)
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		memoryMB = int64(vm.Used) / 1024 / 1024
	}

	var warns, errs int64
	perComponent := map[string]map[string]int64{}
	components.Range(func(k, v any) bool {
		cs := v.(*componentStat)
		w, e := atomic.LoadInt64(&cs.warns), atomic.LoadInt64(&cs.errors)
		warns += w
		errs += e
		perComponent[k.(string)] = map[string]int64{"warns": w, "errors": e}
		return true
	})

	perUpstream := map[string]map[string]int64{}
	upstreams.Range(func(k, v any) bool {
		us := v.(*upstreamStat)
		perUpstream[k.(string)] = map[string]int64{
			"calls": atomic.LoadInt64(&us.calls),
			"bytes": atomic.LoadInt64(&us.bytes),
		}
		return true
	})

	return Fields{
		"goroutines":  runtime.NumGoroutine(),
		"cpu_percent": cpuPct,
		"memory_mb":   memoryMB,
		"warns":       warns,
		"errors":      errs,
		"components":  perComponent,
		"upstreams":   perUpstream,
	}
}
