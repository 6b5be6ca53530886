package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Unit is the constant temperature unit carried on every message.
const Unit = "celsius"

// ErrMalformed reports a payload that is not a usable snapshot message.
var ErrMalformed = errors.New("malformed snapshot message")

// message is the on-the-wire JSON shape. Pointers distinguish a missing
// field from an explicit zero on decode.
type message struct {
	CPUUsage     *float64  `json:"cpu_usage"`
	Temperature  *float64  `json:"cpu_temperature"`
	MemoryUsage  *float64  `json:"memory_usage"`
	DiskUsage    *float64  `json:"disk_usage,omitempty"`
	CPUFrequency *float64  `json:"cpu_frequency,omitempty"`
	CPUCores     *int      `json:"cpu_cores,omitempty"`
	CoresUsage   []float64 `json:"cores_usage,omitempty"`
	Timestamp    *float64  `json:"timestamp"`
	System       string    `json:"system,omitempty"`
	Unit         string    `json:"unit,omitempty"`
}

// Encode serialises s. Linux snapshots carry the extended fields; generic
// ones carry only usage, temperature, memory, disk and timestamp.
func Encode(s Snapshot) ([]byte, error) {
	m := message{
		CPUUsage:    &s.CPUUsage,
		Temperature: &s.TemperatureC,
		MemoryUsage: &s.MemoryUsage,
		DiskUsage:   &s.DiskUsage,
		Timestamp:   &s.Timestamp,
		Unit:        Unit,
	}
	if s.System == SystemLinux {
		m.CPUFrequency = &s.FrequencyMHz
		m.CPUCores = &s.CoreCount
		if len(s.PerCore) > 0 {
			m.CoresUsage = s.PerCore
		}
		m.System = string(SystemLinux)
	}
	return json.Marshal(m)
}

// Decode parses a payload into a Snapshot. Missing fields take their
// documented defaults; anything that is not a JSON object, or whose values
// are of the wrong type or out of range, yields ErrMalformed. now supplies
// the timestamp when the message has none.
func Decode(payload []byte, now time.Time) (Snapshot, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Snapshot{}, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	var m message
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	s := Snapshot{
		CPUUsage:     orDefault(m.CPUUsage, DefaultCPUUsage),
		TemperatureC: orDefault(m.Temperature, DefaultTemperatureC),
		MemoryUsage:  orDefault(m.MemoryUsage, DefaultMemoryUsage),
		DiskUsage:    orDefault(m.DiskUsage, 0),
		FrequencyMHz: orDefault(m.CPUFrequency, 0),
		Timestamp:    orDefault(m.Timestamp, UnixSeconds(now)),
		System:       ParseSystem(m.System),
	}
	if m.CPUCores != nil {
		s.CoreCount = *m.CPUCores
	}
	if len(m.CoresUsage) > 0 {
		s.PerCore = append([]float64(nil), m.CoresUsage...)
	}
	if err := validate(s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func validate(s Snapshot) error {
	pcts := []struct {
		name string
		v    float64
	}{
		{"cpu_usage", s.CPUUsage},
		{"memory_usage", s.MemoryUsage},
		{"disk_usage", s.DiskUsage},
	}
	for _, p := range pcts {
		if p.v < 0 || p.v > 100 {
			return fmt.Errorf("%w: %s %.2f outside [0,100]", ErrMalformed, p.name, p.v)
		}
	}
	for i, v := range s.PerCore {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: cores_usage[%d] %.2f outside [0,100]", ErrMalformed, i, v)
		}
	}
	if s.FrequencyMHz < 0 {
		return fmt.Errorf("%w: negative cpu_frequency", ErrMalformed)
	}
	if s.CoreCount < 0 {
		return fmt.Errorf("%w: negative cpu_cores", ErrMalformed)
	}
	if s.Timestamp < 0 {
		return fmt.Errorf("%w: negative timestamp", ErrMalformed)
	}
	return nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
