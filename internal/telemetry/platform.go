package telemetry

import (
	"context"

	"holodash/internal/models"
)

// CPUStat is the host-wide CPU load for one tick.
type CPUStat struct {
	// UsagePercent is the mean utilisation across all logical CPUs.
	UsagePercent float64
	// FrequencyMHz is the mean clock across all logical CPUs.
	FrequencyMHz float64
}

// MemoryStat holds physical and swap memory in bytes.
type MemoryStat struct {
	Total     uint64
	Used      uint64
	SwapTotal uint64
	SwapUsed  uint64
}

// Temperature is one labelled hardware component temperature.
type Temperature struct {
	Label   string
	Celsius float64
}

// BatteryReading is the generic OS battery readout. Either field may be nil
// when the platform cannot provide it.
type BatteryReading struct {
	Percentage *uint8
	State      *models.BatteryStatus
}

// Platform is the operating-system telemetry source used beneath the probe.
type Platform interface {
	CPU(ctx context.Context) (CPUStat, error)
	Memory(ctx context.Context) (MemoryStat, error)
	Temperatures(ctx context.Context) ([]Temperature, error)
	Battery(ctx context.Context) BatteryReading
	Uptime(ctx context.Context) (uint64, error)
	Identity(ctx context.Context) models.Identity
}
