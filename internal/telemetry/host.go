package telemetry

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/sensors"

	"holodash/internal/models"
)

// HostPlatform reads telemetry from the local machine through gopsutil.
type HostPlatform struct{}

// NewHostPlatform returns a Platform for the running host.
func NewHostPlatform() *HostPlatform {
	return &HostPlatform{}
}

// CPU returns per-CPU utilisation since the previous call, averaged, and the
// mean current clock. The clock reported by cpu.Info is only used when no
// cpufreq readout exists.
func (p *HostPlatform) CPU(ctx context.Context) (CPUStat, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return CPUStat{}, err
	}
	var stat CPUStat
	stat.UsagePercent = mean(percents)

	if clocks := readCurrentClocks(); len(clocks) > 0 {
		stat.FrequencyMHz = mean(clocks)
		return stat, nil
	}
	infos, err := cpu.InfoWithContext(ctx)
	if err == nil && len(infos) > 0 {
		clocks := make([]float64, 0, len(infos))
		for _, info := range infos {
			clocks = append(clocks, info.Mhz)
		}
		stat.FrequencyMHz = mean(clocks)
	}
	return stat, nil
}

// Memory returns physical and swap usage.
func (p *HostPlatform) Memory(ctx context.Context) (MemoryStat, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryStat{}, err
	}
	stat := MemoryStat{Total: vm.Total, Used: vm.Used}
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil && swap != nil {
		stat.SwapTotal = swap.Total
		stat.SwapUsed = swap.Used
	}
	return stat, nil
}

// Temperatures lists hardware sensors. Partial results are returned when some
// sensors fail to read.
func (p *HostPlatform) Temperatures(ctx context.Context) ([]Temperature, error) {
	stats, err := sensors.TemperaturesWithContext(ctx)
	if err != nil && len(stats) == 0 {
		return nil, err
	}
	temps := make([]Temperature, 0, len(stats))
	for _, s := range stats {
		temps = append(temps, Temperature{Label: s.SensorKey, Celsius: s.Temperature})
	}
	return temps, nil
}

// Battery returns the platform battery readout.
func (p *HostPlatform) Battery(ctx context.Context) BatteryReading {
	return readBattery(ctx)
}

// Uptime returns seconds since boot.
func (p *HostPlatform) Uptime(ctx context.Context) (uint64, error) {
	return host.UptimeWithContext(ctx)
}

// Identity samples the host facts that are cached for the process lifetime.
func (p *HostPlatform) Identity(ctx context.Context) models.Identity {
	var id models.Identity
	if info, err := host.InfoWithContext(ctx); err == nil && info != nil {
		id.Hostname = nonEmpty(info.Hostname)
		id.OSName = nonEmpty(osName(info))
		id.KernelVersion = nonEmpty(info.KernelVersion)
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		id.CPUModel = nonEmpty(strings.TrimSpace(infos[0].ModelName))
	}
	if cores, err := cpu.CountsWithContext(ctx, true); err == nil && cores > 0 {
		id.CPUCores = &cores
	}
	id.Resolution = nonEmpty(readResolution(ctx))
	return id
}

func osName(info *host.InfoStat) string {
	name := strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	if name == "" {
		return info.OS
	}
	return name
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
