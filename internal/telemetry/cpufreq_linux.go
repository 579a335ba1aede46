//go:build linux

package telemetry

import (
	"path/filepath"
	"strconv"
)

// readCurrentClocks returns the current clock of every CPU with a cpufreq
// driver, in MHz. gopsutil reports cpuinfo_max_freq as Mhz on Linux, so the
// live value comes from scaling_cur_freq.
func readCurrentClocks() []float64 {
	pattern := filepath.Join(hostSys(), "devices", "system", "cpu", "cpu[0-9]*", "cpufreq", "scaling_cur_freq")
	paths, _ := filepath.Glob(pattern)
	clocks := make([]float64, 0, len(paths))
	for _, path := range paths {
		raw, err := readTrimmed(path)
		if err != nil {
			continue
		}
		khz, err := strconv.ParseFloat(raw, 64)
		if err != nil || khz <= 0 {
			continue
		}
		clocks = append(clocks, khz/1000)
	}
	return clocks
}
