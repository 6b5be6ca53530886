package probe

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
)

// ThermalZones reads labelled thermal zones and returns the first one whose
// type mentions cpu or core. FS is rooted at the thermal class directory.
type ThermalZones struct {
	FS fs.FS
}

func (ThermalZones) Name() string { return "thermal-zones" }

func (z ThermalZones) Measure(ctx context.Context) (float64, bool) {
	zones, err := fs.Glob(z.FS, "thermal_zone*")
	if err != nil {
		return 0, false
	}
	for _, zone := range zones {
		typ, err := fs.ReadFile(z.FS, path.Join(zone, "type"))
		if err != nil {
			continue
		}
		if !mentionsCPU(string(typ)) {
			continue
		}
		t, err := readMilliCelsius(z.FS, path.Join(zone, "temp"))
		if err != nil {
			continue
		}
		return t, true
	}
	return 0, false
}

// IndexedZones probes thermal_zone0..Count-1 directly, ignoring labels.
type IndexedZones struct {
	FS    fs.FS
	Count int
}

func (IndexedZones) Name() string { return "indexed-zones" }

func (z IndexedZones) Measure(ctx context.Context) (float64, bool) {
	for i := 0; i < z.Count; i++ {
		t, err := readMilliCelsius(z.FS, fmt.Sprintf("thermal_zone%d/temp", i))
		if err != nil {
			continue
		}
		return t, true
	}
	return 0, false
}

// readMilliCelsius parses a raw millidegree value such as "45000".
func readMilliCelsius(fsys fs.FS, name string) (float64, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(v) / 1000.0, nil
}

func mentionsCPU(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "cpu") || strings.Contains(s, "core")
}
