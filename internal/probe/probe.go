// Package probe derives a CPU temperature from whatever the host exposes.
// Strategies are tried in order; the first plausible reading wins, and a
// usage-based estimate backs the chain so a value is always produced.
package probe

import (
	"context"
	"os"
	"time"

	"github.com/idwby/cpumon/internal/model"
)

// Plausibility window for sensor readings, in Celsius.
const (
	DefaultMinCelsius = 20.0
	DefaultMaxCelsius = 120.0
)

// EstimateName is reported as the source when no strategy produced a value.
const EstimateName = "estimate"

// Strategy is one self-contained way of reading the CPU temperature.
// A false second return means "no reading"; it is not an error.
type Strategy interface {
	Name() string
	Measure(ctx context.Context) (float64, bool)
}

// Probe runs Strategies in order and falls back to Estimate.
type Probe struct {
	Strategies      []Strategy
	MinCelsius      float64
	MaxCelsius      float64
	HeatCoefficient float64
}

// Options configures the strategies built by ForProfile.
type Options struct {
	ThermalRoot    string // usually /sys/class/thermal
	SensorsTimeout time.Duration
	MinCelsius     float64
	MaxCelsius     float64
	Run            Runner // nil uses exec
}

// ForProfile builds the strategy chain a producer profile uses. Linux hosts
// walk sysfs and lm-sensors; everything else asks gopsutil for sensor data.
func ForProfile(p model.Profile, opts Options) *Probe {
	if opts.MinCelsius == 0 && opts.MaxCelsius == 0 {
		opts.MinCelsius, opts.MaxCelsius = DefaultMinCelsius, DefaultMaxCelsius
	}
	if opts.ThermalRoot == "" {
		opts.ThermalRoot = "/sys/class/thermal"
	}
	if opts.SensorsTimeout <= 0 {
		opts.SensorsTimeout = 2 * time.Second
	}

	var strategies []Strategy
	if p.System == model.SystemLinux {
		fsys := os.DirFS(opts.ThermalRoot)
		strategies = []Strategy{
			ThermalZones{FS: fsys},
			SensorsCommand{Run: opts.Run, Timeout: opts.SensorsTimeout},
			IndexedZones{FS: fsys, Count: 10},
		}
	} else {
		strategies = []Strategy{HostSensors{MinCelsius: opts.MinCelsius, MaxCelsius: opts.MaxCelsius}}
	}
	return &Probe{
		Strategies:      strategies,
		MinCelsius:      opts.MinCelsius,
		MaxCelsius:      opts.MaxCelsius,
		HeatCoefficient: p.HeatCoefficient,
	}
}

// Measure returns a temperature in Celsius. It never fails: usage feeds the
// estimate used when every strategy comes back empty or implausible.
func (p *Probe) Measure(ctx context.Context, usage float64) float64 {
	t, _ := p.MeasureSource(ctx, usage)
	return t
}

// MeasureSource is Measure plus the name of the strategy that answered.
func (p *Probe) MeasureSource(ctx context.Context, usage float64) (float64, string) {
	for _, s := range p.Strategies {
		if ctx.Err() != nil {
			break
		}
		if t, ok := s.Measure(ctx); ok && p.plausible(t) {
			return t, s.Name()
		}
	}
	return Estimate(usage, p.HeatCoefficient), EstimateName
}

func (p *Probe) plausible(t float64) bool {
	return t >= p.MinCelsius && t <= p.MaxCelsius
}

// Estimate models temperature as a linear function of CPU usage.
// usage is clamped to [0,100] first.
func Estimate(usage, coefficient float64) float64 {
	return model.BaseTemperatureC + model.ClampPercent(usage)*coefficient
}
