package sampler

import (
	"context"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/common"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Host is the slice of the operating system the sampler reads from.
type Host interface {
	CPUTimes(ctx context.Context, perCPU bool) ([]cpu.TimesStat, error)
	MemoryPercent(ctx context.Context) (float64, error)
	DiskPercent(ctx context.Context, path string) (float64, error)
	FrequencyMHz(ctx context.Context) (float64, error)
	LogicalCores(ctx context.Context) (int, error)
}

// System reads the live host through gopsutil.
type System struct{}

func (System) CPUTimes(ctx context.Context, perCPU bool) ([]cpu.TimesStat, error) {
	return cpu.TimesWithContext(ctx, perCPU)
}

func (System) MemoryPercent(ctx context.Context) (float64, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return v.UsedPercent, nil
}

func (System) DiskPercent(ctx context.Context, path string) (float64, error) {
	u, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return u.UsedPercent, nil
}

// FrequencyMHz reports the current clock averaged over every CPU that
// exposes cpufreq. cpu.Info's Mhz is the maximum clock on Linux, so it is
// only used when no scaling_cur_freq file can be read.
func (System) FrequencyMHz(ctx context.Context) (float64, error) {
	if f, ok := currentFrequencyMHz(os.DirFS(hostSys(ctx))); ok {
		return f, nil
	}
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return 0, err
	}
	for _, info := range infos {
		if info.Mhz > 0 {
			return info.Mhz, nil
		}
	}
	return 0, nil
}

// hostSys resolves the sysfs root the same way gopsutil does: a context
// EnvMap first, then HOST_SYS, then /sys.
func hostSys(ctx context.Context) string {
	if env, ok := ctx.Value(common.EnvKey).(common.EnvMap); ok {
		if v := env[common.HostSysEnvKey]; v != "" {
			return v
		}
	}
	if v := os.Getenv(string(common.HostSysEnvKey)); v != "" {
		return v
	}
	return "/sys"
}

// currentFrequencyMHz averages cpu*/cpufreq/scaling_cur_freq (kHz) under a
// sysfs root.
func currentFrequencyMHz(sysfs fs.FS) (float64, bool) {
	files, err := fs.Glob(sysfs, "devices/system/cpu/cpu[0-9]*/cpufreq/scaling_cur_freq")
	if err != nil {
		return 0, false
	}
	var sum float64
	var n int
	for _, name := range files {
		b, err := fs.ReadFile(sysfs, name)
		if err != nil {
			continue
		}
		khz, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		if err != nil || khz <= 0 {
			continue
		}
		sum += khz / 1000
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func (System) LogicalCores(ctx context.Context) (int, error) {
	return cpu.CountsWithContext(ctx, true)
}
