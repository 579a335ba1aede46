package models

// RawReading is the JSON document printed by the hardware probe's query mode.
// Battery fields are optional because older probe builds omit them.
type RawReading struct {
	CPUTemp             float32   `json:"cpu_temp"`
	FanSpeed            []float32 `json:"fan_speed"`
	EstimatedPowerScore float32   `json:"estimated_power_score"`
	BatteryPercentage   *uint8    `json:"battery_percentage,omitempty"`
	BatteryStatus       *string   `json:"battery_status,omitempty"`
}
