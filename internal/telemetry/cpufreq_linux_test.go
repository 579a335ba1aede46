//go:build linux

package telemetry

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func fakeCPUFreq(t *testing.T, root, cpu, cur, maxFreq string) {
	t.Helper()
	writeSysfs(t, filepath.Join(root, "devices", "system", "cpu", cpu, "cpufreq"), map[string]string{
		"scaling_cur_freq": cur,
		"cpuinfo_max_freq": maxFreq,
	})
}

func TestReadCurrentClocks(t *testing.T) {
	root := t.TempDir()
	fakeCPUFreq(t, root, "cpu0", "1200000\n", "4000000\n")
	fakeCPUFreq(t, root, "cpu1", "1800000\n", "4000000\n")
	writeSysfs(t, filepath.Join(root, "devices", "system", "cpu", "cpufreq"), map[string]string{"boost": "1\n"})
	t.Setenv("HOST_SYS", root)

	clocks := readCurrentClocks()
	if len(clocks) != 2 {
		t.Fatalf("expected 2 clocks, got %v", clocks)
	}
	if got := mean(clocks); got != 1500 {
		t.Fatalf("expected mean 1500 MHz, got %v", got)
	}
}

func TestReadCurrentClocksSkipsGarbage(t *testing.T) {
	root := t.TempDir()
	fakeCPUFreq(t, root, "cpu0", "<unknown>\n", "4000000\n")
	fakeCPUFreq(t, root, "cpu1", "2400000\n", "4000000\n")
	t.Setenv("HOST_SYS", root)

	clocks := readCurrentClocks()
	if len(clocks) != 1 || clocks[0] != 2400 {
		t.Fatalf("expected [2400], got %v", clocks)
	}
}

func TestHostCPUReportsCurrentClock(t *testing.T) {
	root := t.TempDir()
	fakeCPUFreq(t, root, "cpu0", "1200000\n", "4000000\n")
	t.Setenv("HOST_SYS", root)

	stat, err := NewHostPlatform().CPU(context.Background())
	if err != nil {
		t.Skipf("cpu counters unavailable: %v", err)
	}
	if math.Abs(stat.FrequencyMHz-1200) > 0.001 {
		t.Fatalf("expected 1200 MHz from scaling_cur_freq, got %v", stat.FrequencyMHz)
	}
}
