//go:build !windows

package telemetry

import (
	"context"
	"math"

	"github.com/distatus/battery"

	"holodash/internal/models"
)

func readBattery(_ context.Context) BatteryReading {
	// partial errors still come with usable entries
	batteries, _ := battery.GetAll()
	return summarizeBatteries(batteries)
}

// summarizeBatteries folds every pack into one readout: charge is the sum
// of current energy over the sum of full energy, and any charging pack makes
// the whole system charging.
func summarizeBatteries(batteries []*battery.Battery) BatteryReading {
	var current, full float64
	var states []battery.AgnosticState
	for _, b := range batteries {
		if b == nil || b.Full <= 0 {
			continue
		}
		current += b.Current
		full += b.Full
		states = append(states, b.State.Raw)
	}
	if full <= 0 {
		return BatteryReading{}
	}
	pct := math.Round(current / full * 100)
	pct = math.Max(0, math.Min(100, pct))
	value := uint8(pct)
	return BatteryReading{Percentage: &value, State: batteryState(states)}
}

// batteryState returns nil for idle or unknown packs so the status can be
// inferred from the charge level.
func batteryState(states []battery.AgnosticState) *models.BatteryStatus {
	if len(states) == 0 {
		return nil
	}
	var state models.BatteryStatus
	switch {
	case hasState(states, battery.Charging):
		state = models.BatteryCharging
	case hasState(states, battery.Discharging):
		state = models.BatteryDischarging
	case allState(states, battery.Full):
		state = models.BatteryFull
	default:
		return nil
	}
	return &state
}

func hasState(states []battery.AgnosticState, want battery.AgnosticState) bool {
	for _, s := range states {
		if s == want {
			return true
		}
	}
	return false
}

func allState(states []battery.AgnosticState, want battery.AgnosticState) bool {
	for _, s := range states {
		if s != want {
			return false
		}
	}
	return true
}
