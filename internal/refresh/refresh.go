// Package refresh keeps the fetch-result cache warm by recomputing the
// composite and the supporting views on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"netgdp/logger"
)

// Task is one unit of warming work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Warmer struct {
	cron    *cron.Cron
	spec    string
	tasks   []Task
	timeout time.Duration
	log     *logger.Log

	mu      sync.Mutex
	lastRun time.Time
	lastErr map[string]error
}

// New validates schedule (standard cron or @every descriptors) and builds a
// warmer for tasks. Each run is bounded by timeout when positive.
func New(schedule string, timeout time.Duration, log *logger.Log, tasks ...Task) (*Warmer, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	clog := cronLogger{entry: log.WithComponent("refresh")}
	w := &Warmer{
		cron: cron.New(
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		spec:    schedule,
		tasks:   tasks,
		timeout: timeout,
		log:     log,
		lastErr: map[string]error{},
	}
	return w, nil
}

// Start schedules the warmer and stops it when ctx is done.
func (w *Warmer) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.spec, func() { w.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	w.cron.Start()
	w.log.WithComponent("refresh").WithFields(logger.Fields{
		"schedule": w.spec,
		"tasks":    len(w.tasks),
	}).Info("cache warmer started")

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a running refresh to finish.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
}

// RunOnce runs every task sequentially and returns how many failed. A
// failing task does not stop the others.
func (w *Warmer) RunOnce(ctx context.Context) int {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	started := time.Now()
	entry := w.log.WithComponent("refresh")
	failed := 0
	errs := make(map[string]error, len(w.tasks))
	for _, t := range w.tasks {
		err := runTask(ctx, t)
		errs[t.Name] = err
		if err != nil {
			failed++
			entry.WithField("task", t.Name).WithError(err).Warn("refresh task failed")
		}
	}

	w.mu.Lock()
	w.lastRun = started
	w.lastErr = errs
	w.mu.Unlock()

	logger.LogDuration(entry, "refresh", started, logger.Fields{"tasks": len(w.tasks), "failed": failed})
	return failed
}

func runTask(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Run(ctx)
}

// Status reports the last run time and the task failures of that run.
func (w *Warmer) Status() (time.Time, map[string]string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	failures := map[string]string{}
	for name, err := range w.lastErr {
		if err != nil {
			failures[name] = err.Error()
		}
	}
	return w.lastRun, failures
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	entry *logger.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).WithError(err).Error(msg)
}

func kvFields(kv []interface{}) logger.Fields {
	fields := logger.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			fields[k] = kv[i+1]
		}
	}
	return fields
}
