package system

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats collects stage timings for the performance report.
type Stats struct {
	mu      sync.Mutex
	started time.Time
	stages  []StageTiming
}

type StageTiming struct {
	Name     string
	Duration time.Duration
}

func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

// Track records the time since start under name.
func (s *Stats) Track(name string, start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, StageTiming{Name: name, Duration: time.Since(start)})
}

func (s *Stats) Stages() []StageTiming {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StageTiming, len(s.stages))
	copy(out, s.stages)
	return out
}

// Host is a snapshot of the machine and of this process.
type Host struct {
	LogicalCPUs int
	MemTotalMB  uint64
	MemUsedPct  float64
	ProcessRSS  uint64
}

// SampleHost reads host and process figures; fields it cannot read stay zero.
func SampleHost() Host {
	var h Host
	if n, err := cpu.Counts(true); err == nil {
		h.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.MemTotalMB = vm.Total / (1 << 20)
		h.MemUsedPct = vm.UsedPercent
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			h.ProcessRSS = mi.RSS
		}
	}
	return h
}

// Report renders the performance report printed at the end of a run.
func (s *Stats) Report(build string, clips int, host Host) string {
	total := time.Since(s.started)
	var b strings.Builder
	b.WriteString("--- [PERFORMANCE REPORT] ---\n")
	fmt.Fprintf(&b, "Build: %s\n", build)
	fmt.Fprintf(&b, "Total Time: %.2fs\n", total.Seconds())
	for _, st := range s.Stages() {
		fmt.Fprintf(&b, "%s: %.2fs\n", st.Name, st.Duration.Seconds())
	}
	fmt.Fprintf(&b, "Clips: %d\n", clips)
	fmt.Fprintf(&b, "CPUs: %d | RAM: %d MB (%.1f%% used) | RSS: %d MB\n",
		host.LogicalCPUs, host.MemTotalMB, host.MemUsedPct, host.ProcessRSS/(1<<20))
	b.WriteString("----------------------------\n")
	return b.String()
}

// AppendBenchmark adds a one-line summary of the run to path.
func (s *Stats) AppendBenchmark(path, build, topic string, clips int) error {
	var parts []string
	for _, st := range s.Stages() {
		parts = append(parts, fmt.Sprintf("%s: %.2fs", st.Name, st.Duration.Seconds()))
	}
	line := fmt.Sprintf("[%s] Build: %s | Topic: %s | Clips: %d | Total: %.2fs | %s\n",
		time.Now().Format("2006-01-02 15:04:05"), build, topic, clips,
		time.Since(s.started).Seconds(), strings.Join(parts, " | "))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}
