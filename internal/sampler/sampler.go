package sampler

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/idwby/cpumon/internal/model"
	"github.com/idwby/cpumon/internal/probe"
)

// Sampler builds one Snapshot per call. Every sub-metric is best-effort:
// a failed read leaves its field at zero rather than aborting the sample.
type Sampler struct {
	Profile  model.Profile
	Probe    *probe.Probe
	Host     Host
	Window   time.Duration // CPU measurement window, the one blocking point
	DiskPath string
	Now      func() time.Time
}

func New(profile model.Profile, p *probe.Probe) *Sampler {
	return &Sampler{
		Profile:  profile,
		Probe:    p,
		Host:     System{},
		Window:   time.Second,
		DiskPath: "/",
		Now:      time.Now,
	}
}

// Sample gathers a full snapshot. It blocks for roughly Window while CPU
// time counters advance.
func (s *Sampler) Sample(ctx context.Context) model.Snapshot {
	snap, _ := s.SampleSource(ctx)
	return snap
}

// SampleSource is Sample plus the name of the probe strategy that supplied
// the temperature.
func (s *Sampler) SampleSource(ctx context.Context) (model.Snapshot, string) {
	total, perCore := s.cpuPercents(ctx)

	snap := model.Snapshot{
		CPUUsage: total,
		System:   s.Profile.System,
	}
	var source string
	snap.TemperatureC, source = s.Probe.MeasureSource(ctx, total)

	if v, err := s.Host.MemoryPercent(ctx); err == nil {
		snap.MemoryUsage = model.ClampPercent(v)
	}
	if v, err := s.Host.DiskPercent(ctx, s.DiskPath); err == nil {
		snap.DiskUsage = model.ClampPercent(v)
	}

	if s.Profile.Extended {
		if f, err := s.Host.FrequencyMHz(ctx); err == nil && f > 0 {
			snap.FrequencyMHz = f
		}
		snap.PerCore = perCore
		snap.CoreCount = len(perCore)
		if snap.CoreCount == 0 {
			if n, err := s.Host.LogicalCores(ctx); err == nil {
				snap.CoreCount = n
			}
		}
	}

	snap.Timestamp = model.UnixSeconds(s.Now())
	return snap, source
}

// cpuPercents reads CPU times on both sides of one window and derives the
// aggregate and per-core busy percentages from the deltas.
func (s *Sampler) cpuPercents(ctx context.Context) (total float64, perCore []float64) {
	before, _ := s.Host.CPUTimes(ctx, false)
	var beforeCores []cpu.TimesStat
	if s.Profile.Extended {
		beforeCores, _ = s.Host.CPUTimes(ctx, true)
	}

	if !sleep(ctx, s.Window) {
		return 0, nil
	}

	after, _ := s.Host.CPUTimes(ctx, false)
	if len(before) > 0 && len(after) > 0 {
		total = busyPercent(before[0], after[0])
	}
	if !s.Profile.Extended {
		return total, nil
	}
	afterCores, _ := s.Host.CPUTimes(ctx, true)
	if len(afterCores) == 0 || len(afterCores) != len(beforeCores) {
		return total, nil
	}
	perCore = make([]float64, len(afterCores))
	for i := range afterCores {
		perCore[i] = busyPercent(beforeCores[i], afterCores[i])
	}
	return total, perCore
}

func busyPercent(prev, cur cpu.TimesStat) float64 {
	dt := cur.Total() - prev.Total()
	if dt <= 0 {
		return 0
	}
	di := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	return model.ClampPercent(100 * (1 - di/dt))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
