// Package telemetry merges the hardware probe, the platform APIs and
// heuristic estimates into one MetricsSnapshot per sampling tick.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"holodash/internal/models"
	"holodash/internal/probe"
	"holodash/internal/utils"
)

const (
	// ProbeRefreshTicks is how many samples reuse a cached probe reading
	// before the probe is queried again.
	ProbeRefreshTicks = 10
	// DefaultProbeBudget is how long Sample waits for a probe query started
	// on the current tick. It stays below the scheduler period.
	DefaultProbeBudget = 80 * time.Millisecond

	maxPlausibleTemp = 150.0
	fullThreshold    = 95
)

var cpuSensorKeywords = []string{"core", "package", "cpu", "soc"}

type probeResult struct {
	reading *models.RawReading
	err     error
}

// Aggregator produces snapshots. It is owned by the sampling goroutine and
// is not safe for concurrent use.
type Aggregator struct {
	platform Platform
	probe    probe.Probe
	identity models.Identity
	budget   time.Duration
	logger   *utils.Logger

	cached   *models.RawReading
	counter  int
	inflight chan probeResult
}

// NewAggregator samples the host identity once and returns an aggregator.
// p may be nil when no probe was located at startup.
func NewAggregator(ctx context.Context, platform Platform, p probe.Probe, logger *utils.Logger) *Aggregator {
	a := &Aggregator{
		platform: platform,
		probe:    p,
		identity: platform.Identity(ctx),
		budget:   DefaultProbeBudget,
		logger:   logger,
	}
	if a.identity.Hostname != nil {
		a.logf("Host: %s", *a.identity.Hostname)
	}
	if a.identity.CPUModel != nil {
		a.logf("CPU: %s", *a.identity.CPUModel)
	}
	return a
}

// SetProbeBudget changes how long Sample waits for a fresh probe query.
func (a *Aggregator) SetProbeBudget(d time.Duration) {
	a.budget = d
}

// Identity returns the cached host identity.
func (a *Aggregator) Identity() models.Identity {
	return a.identity
}

// Sample returns a best-effort snapshot. Missing sources become nil or empty
// fields; it never fails.
func (a *Aggregator) Sample(ctx context.Context) models.MetricsSnapshot {
	var snap models.MetricsSnapshot

	if cpuStat, err := a.platform.CPU(ctx); err == nil {
		snap.CPUUsage = float32(cpuStat.UsagePercent)
		snap.CPUFrequencyMHz = uint64(cpuStat.FrequencyMHz)
	}

	if memStat, err := a.platform.Memory(ctx); err == nil {
		snap.MemoryTotal = memStat.Total / 1024 / 1024
		snap.MemoryUsed = memStat.Used / 1024 / 1024
		if snap.MemoryTotal > 0 {
			snap.MemoryUsage = float32(snap.MemoryUsed) / float32(snap.MemoryTotal) * 100
		}
		if memStat.SwapTotal > 0 {
			snap.SwapUsage = float32(memStat.SwapUsed) / float32(memStat.SwapTotal) * 100
		}
	}

	a.refreshProbe(ctx)
	reading := a.cached

	snap.CPUTemp = a.resolveCPUTemp(ctx, reading)
	snap.GPUTemp = EstimateGPUTemp(snap.CPUTemp, snap.CPUUsage)

	if reading != nil {
		snap.PowerScore = reading.EstimatedPowerScore
		snap.FanSpeeds = append([]float32{}, reading.FanSpeed...)
	} else {
		snap.PowerScore = EstimatePowerScore(snap.CPUUsage, snap.MemoryUsage)
		snap.FanSpeeds = []float32{}
	}

	snap.BatteryPercentage, snap.BatteryStatus = a.resolveBattery(ctx, reading)

	if uptime, err := a.platform.Uptime(ctx); err == nil {
		snap.UptimeSecs = &uptime
	}

	snap.Hostname = a.identity.Hostname
	snap.OSName = a.identity.OSName
	snap.KernelVersion = a.identity.KernelVersion
	snap.CPUModel = a.identity.CPUModel
	snap.CPUCores = a.identity.CPUCores
	snap.Resolution = a.identity.Resolution
	return snap
}

// refreshProbe queries the probe every ProbeRefreshTicks samples, or on every
// sample while nothing is cached. The query runs in its own goroutine; a
// result that misses the budget is collected on a later tick and the stale
// reading is used meanwhile. Failed queries keep the previous reading.
func (a *Aggregator) refreshProbe(ctx context.Context) {
	if a.probe == nil {
		a.cached = nil
		return
	}
	a.collect(0)

	a.counter++
	if a.inflight != nil || (a.counter < ProbeRefreshTicks && a.cached != nil) {
		return
	}
	a.counter = 0
	ch := make(chan probeResult, 1)
	a.inflight = ch
	p := a.probe
	go func() {
		reading, err := p.Query(ctx)
		ch <- probeResult{reading: reading, err: err}
	}()
	a.collect(a.budget)
}

// collect applies a finished probe query, waiting up to wait for it.
func (a *Aggregator) collect(wait time.Duration) {
	if a.inflight == nil {
		return
	}
	var res probeResult
	if wait <= 0 {
		select {
		case res = <-a.inflight:
		default:
			return
		}
	} else {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case res = <-a.inflight:
		case <-timer.C:
			return
		}
	}
	a.inflight = nil
	// the refresh interval runs from the last completed query
	a.counter = 0
	if res.err != nil || res.reading == nil {
		return
	}
	a.cached = res.reading
}

func (a *Aggregator) resolveCPUTemp(ctx context.Context, reading *models.RawReading) *float32 {
	if reading != nil {
		t := reading.CPUTemp
		return &t
	}
	temps, err := a.platform.Temperatures(ctx)
	if err != nil {
		return nil
	}
	return HottestCPUTemp(temps)
}

func (a *Aggregator) resolveBattery(ctx context.Context, reading *models.RawReading) (*uint8, *models.BatteryStatus) {
	var probePct *uint8
	var probeStatus *string
	if reading != nil {
		probePct = reading.BatteryPercentage
		probeStatus = reading.BatteryStatus
	}

	var platform BatteryReading
	if probePct == nil || probeStatus == nil {
		platform = a.platform.Battery(ctx)
	}

	pct := probePct
	if pct == nil {
		pct = platform.Percentage
	}
	if pct != nil {
		value := *pct
		pct = &value
	}
	return pct, ResolveBatteryStatus(probeStatus, pct, platform.State)
}

// HottestCPUTemp returns the highest plausible temperature among sensors
// whose label names a CPU component, or nil when none qualifies.
func HottestCPUTemp(temps []Temperature) *float32 {
	var hottest float64
	for _, t := range temps {
		if !isCPUSensor(t.Label) {
			continue
		}
		if t.Celsius > hottest && t.Celsius < maxPlausibleTemp {
			hottest = t.Celsius
		}
	}
	if hottest <= 0 {
		return nil
	}
	value := float32(hottest)
	return &value
}

func isCPUSensor(label string) bool {
	lower := strings.ToLower(label)
	for _, keyword := range cpuSensorKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// EstimateGPUTemp derives the GPU temperature from the SoC temperature and
// the current CPU load.
func EstimateGPUTemp(cpuTemp *float32, cpuUsage float32) *float32 {
	if cpuTemp == nil {
		return nil
	}
	value := float32(*cpuTemp + 3.0 + float32(cpuUsage*0.05))
	return &value
}

// EstimatePowerScore is the heuristic used when the probe has no estimate:
// an idle baseline plus CPU and memory pressure.
func EstimatePowerScore(cpuUsage, memoryUsage float32) float32 {
	return float32(2.0 + float32(cpuUsage*0.15) + float32(memoryUsage*0.05))
}

// ResolveBatteryStatus prefers the probe's status string, which can report
// AC-attached states the OS API cannot. Without a known percentage there is
// no status at all.
func ResolveBatteryStatus(probeStatus *string, pct *uint8, platformState *models.BatteryStatus) *models.BatteryStatus {
	var status models.BatteryStatus
	switch {
	case probeStatus != nil:
		status = models.BatteryStatus(*probeStatus)
	case pct == nil:
		return nil
	case platformState != nil:
		status = *platformState
	case *pct >= fullThreshold:
		status = models.BatteryFull
	default:
		status = models.BatteryUnknown
	}
	return &status
}

func (a *Aggregator) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if a.logger != nil {
		a.logger.Write(msg)
		return
	}
	log.Println(msg)
}
