package probe

import (
	"bufio"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

// Runner executes an external command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, ctx.Err()
	}
	return out, err
}

var sensorsTempRe = regexp.MustCompile(`([+-]?\d+\.\d+)°C`)

// SensorsCommand runs lm-sensors' `sensors` and takes the first cpu or core
// line carrying a temperature.
type SensorsCommand struct {
	Run     Runner
	Timeout time.Duration
}

func (SensorsCommand) Name() string { return "sensors" }

func (c SensorsCommand) Measure(ctx context.Context) (float64, bool) {
	run := c.Run
	if run == nil {
		run = execRunner
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	out, err := run(ctx, "sensors")
	if err != nil || len(out) == 0 {
		return 0, false
	}
	return ParseSensorsOutput(string(out))
}

// ParseSensorsOutput scans `sensors` text output line by line.
func ParseSensorsOutput(out string) (float64, bool) {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !mentionsCPU(line) {
			continue
		}
		m := sensorsTempRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// HostSensors asks gopsutil for temperature sensors and averages the ones
// whose key mentions cpu or core. Readings outside [MinCelsius,MaxCelsius]
// are left out of the average; a zero window means the default one.
type HostSensors struct {
	Read       func(ctx context.Context) ([]host.TemperatureStat, error)
	MinCelsius float64
	MaxCelsius float64
}

func (HostSensors) Name() string { return "host-sensors" }

func (h HostSensors) Measure(ctx context.Context) (float64, bool) {
	read := h.Read
	if read == nil {
		read = host.SensorsTemperaturesWithContext
	}
	// gopsutil returns partial results together with a warnings error.
	stats, _ := read(ctx)
	lo, hi := h.MinCelsius, h.MaxCelsius
	if lo == 0 && hi == 0 {
		lo, hi = DefaultMinCelsius, DefaultMaxCelsius
	}
	var sum float64
	var n int
	for _, s := range stats {
		if !mentionsCPU(s.SensorKey) || s.Temperature < lo || s.Temperature > hi {
			continue
		}
		sum += s.Temperature
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
