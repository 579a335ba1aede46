package models

import "time"

// MetricsSnapshot is one sampling tick of host telemetry. Field names are
// the wire contract shared by the WebSocket dashboard and UDP peripherals.
type MetricsSnapshot struct {
	CPUUsage        float32   `json:"cpu_usage"`
	CPUFrequencyMHz uint64    `json:"cpu_frequency_mhz"`
	MemoryUsage     float32   `json:"memory_usage"`
	MemoryTotal     uint64    `json:"memory_total"`
	MemoryUsed      uint64    `json:"memory_used"`
	SwapUsage       float32   `json:"swap_usage"`
	CPUTemp         *float32  `json:"cpu_temp"`
	GPUTemp         *float32  `json:"gpu_temp"`
	FanSpeeds       []float32 `json:"fan_speeds"`
	PowerScore      float32   `json:"power_score"`

	Hostname          *string        `json:"hostname"`
	OSName            *string        `json:"os_name"`
	KernelVersion     *string        `json:"kernel_version"`
	CPUModel          *string        `json:"cpu_model"`
	CPUCores          *int           `json:"cpu_cores"`
	UptimeSecs        *uint64        `json:"uptime_secs"`
	BatteryPercentage *uint8         `json:"battery_percentage"`
	BatteryStatus     *BatteryStatus `json:"battery_status"`
	Resolution        *string        `json:"resolution"`
}

// Identity holds host facts sampled once at startup and reused for every snapshot.
type Identity struct {
	Hostname      *string
	OSName        *string
	KernelVersion *string
	CPUModel      *string
	CPUCores      *int
	Resolution    *string
}

// BatteryStatus is the charging state reported alongside battery_percentage.
type BatteryStatus string

const (
	BatteryCharging    BatteryStatus = "Charging"
	BatteryDischarging BatteryStatus = "Discharging"
	BatteryFull        BatteryStatus = "Full"
	BatteryUnknown     BatteryStatus = "Unknown"
)

// Welcome is the first message a streaming session receives.
type Welcome struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewWelcome returns the greeting sent on connect.
func NewWelcome() Welcome {
	return Welcome{Type: "connected", Message: "Connected to the holographic dashboard"}
}

// ClientStatus is the HTTP view of a registered UDP peripheral.
type ClientStatus struct {
	Address  string    `json:"address"`
	LastSeen time.Time `json:"last_seen"`
	IdleSecs float64   `json:"idle_secs"`
}
