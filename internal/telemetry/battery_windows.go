//go:build windows

package telemetry

import (
	"context"

	"github.com/StackExchange/wmi"

	"holodash/internal/models"
)

type win32Battery struct {
	EstimatedChargeRemaining uint16
	BatteryStatus            uint16
}

func readBattery(_ context.Context) BatteryReading {
	var batteries []win32Battery
	if err := wmi.Query("SELECT EstimatedChargeRemaining, BatteryStatus FROM Win32_Battery", &batteries); err != nil || len(batteries) == 0 {
		return BatteryReading{}
	}
	b := batteries[0]
	var reading BatteryReading
	if b.EstimatedChargeRemaining <= 100 {
		pct := uint8(b.EstimatedChargeRemaining)
		reading.Percentage = &pct
	}
	reading.State = wmiBatteryState(b.BatteryStatus)
	return reading
}

// Win32_Battery.BatteryStatus: 1 discharging, 2 on AC (state unknown),
// 3 fully charged, 6-9 charging variants.
func wmiBatteryState(code uint16) *models.BatteryStatus {
	var state models.BatteryStatus
	switch code {
	case 1:
		state = models.BatteryDischarging
	case 3:
		state = models.BatteryFull
	case 6, 7, 8, 9:
		state = models.BatteryCharging
	default:
		return nil
	}
	return &state
}
