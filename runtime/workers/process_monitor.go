package workers

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"terminal-messenger/observability"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats is the last sample taken of the server process.
type ProcessStats struct {
	PID        int32     `json:"pid"`
	CPUPercent float64   `json:"cpuPercent"`
	RSSBytes   uint64    `json:"rssBytes"`
	SampledAt  time.Time `json:"sampledAt"`
}

// ProcessMonitorWorker samples CPU and memory usage of the running server,
// exports them as gauges and keeps the last sample for the health endpoint.
type ProcessMonitorWorker struct {
	mu       sync.RWMutex
	log      *slog.Logger
	metrics  *observability.Metrics
	interval time.Duration
	last     ProcessStats
}

func NewProcessMonitorWorker(log *slog.Logger, metrics *observability.Metrics, interval time.Duration) *ProcessMonitorWorker {
	return &ProcessMonitorWorker{log: log, metrics: metrics, interval: interval}
}

func (w *ProcessMonitorWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	w.sample(p)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process monitoring")
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *ProcessMonitorWorker) sample(p *process.Process) {
	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Debug("Error while finding process cpu usage", "err", err)
		return
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		w.log.Debug("Error while finding process memory usage", "err", err)
		return
	}
	stats := ProcessStats{PID: p.Pid, CPUPercent: cpu, RSSBytes: mem.RSS, SampledAt: time.Now().UTC()}

	w.mu.Lock()
	w.last = stats
	w.mu.Unlock()
	w.metrics.ProcessCPUPercent.Set(cpu)
	w.metrics.ProcessRSSBytes.Set(float64(mem.RSS))
}

// Snapshot returns the last sample and whether one was taken yet.
func (w *ProcessMonitorWorker) Snapshot() (ProcessStats, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last, !w.last.SampledAt.IsZero()
}
