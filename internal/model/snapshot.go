package model

import (
	"math"
	"time"
)

// System identifies which producer profile built a Snapshot.
type System string

const (
	SystemGeneric System = "generic"
	SystemLinux   System = "linux"
)

// ParseSystem maps a wire value to a System; anything unrecognised is generic.
func ParseSystem(s string) System {
	if s == string(SystemLinux) {
		return SystemLinux
	}
	return SystemGeneric
}

// Values the display side reports before the first message arrives.
const (
	DefaultTemperatureC = 35.0
	DefaultCPUUsage     = 10.0
	DefaultMemoryUsage  = 50.0
)

// Snapshot is one point-in-time bundle of host metrics. It is treated as an
// immutable value: consumers replace it wholesale and never edit fields.
type Snapshot struct {
	CPUUsage     float64   // percent 0-100
	TemperatureC float64   // always populated
	MemoryUsage  float64   // percent 0-100
	DiskUsage    float64   // percent 0-100, 0 when the producer omits it
	FrequencyMHz float64   // 0 when unknown
	CoreCount    int       // 0 when unknown
	PerCore      []float64 // one entry per logical core, nil when unknown
	Timestamp    float64   // unix seconds
	System       System
}

// DefaultSnapshot returns the value a fresh cache holds.
func DefaultSnapshot(now time.Time) Snapshot {
	return Snapshot{
		CPUUsage:     DefaultCPUUsage,
		TemperatureC: DefaultTemperatureC,
		MemoryUsage:  DefaultMemoryUsage,
		Timestamp:    UnixSeconds(now),
		System:       SystemGeneric,
	}
}

// Time converts the unix-seconds timestamp back to a time.Time.
func (s Snapshot) Time() time.Time {
	sec, frac := math.Modf(s.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Round returns a copy with every measured value rounded to one decimal place.
// The timestamp is left untouched.
func (s Snapshot) Round() Snapshot {
	out := s
	out.CPUUsage = Round1(s.CPUUsage)
	out.TemperatureC = Round1(s.TemperatureC)
	out.MemoryUsage = Round1(s.MemoryUsage)
	out.DiskUsage = Round1(s.DiskUsage)
	out.FrequencyMHz = Round1(s.FrequencyMHz)
	if s.PerCore != nil {
		out.PerCore = make([]float64, len(s.PerCore))
		for i, v := range s.PerCore {
			out.PerCore[i] = Round1(v)
		}
	}
	return out
}

// Clone returns a copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.PerCore != nil {
		out.PerCore = append([]float64(nil), s.PerCore...)
	}
	return out
}

// UnixSeconds returns t as fractional unix seconds.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ClampPercent limits v to [0,100]; NaN becomes 0.
func ClampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
