// Package metrics exposes Prometheus collectors for the sampling loop and
// both distribution transports.
package metrics

import (
	"math"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"holodash/internal/models"
)

const namespace = "holodash"

// Collectors groups every metric the server exports. All methods are safe on
// a nil receiver so components can run without metrics in tests.
type Collectors struct {
	registry *prometheus.Registry

	ticks           prometheus.Counter
	serializeErrors prometheus.Counter
	unicastErrors   prometheus.Counter
	evictions       prometheus.Counter
	datagrams       *prometheus.CounterVec
	fanCommands     *prometheus.CounterVec

	cpuUsage    prometheus.Gauge
	memoryUsage prometheus.Gauge
	cpuTemp     prometheus.Gauge
	powerScore  prometheus.Gauge
}

// New creates and registers all collectors on a private registry.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Sampling ticks completed.",
		}),
		serializeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "serialize_errors_total",
			Help: "Snapshots that failed to serialize.",
		}),
		unicastErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "unicast_errors_total",
			Help: "Datagram pushes that failed to send.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "client_evictions_total",
			Help: "Datagram clients evicted after the liveness timeout.",
		}),
		datagrams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "datagrams_received_total",
			Help: "Inbound datagrams by message kind.",
		}, []string{"kind"}),
		fanCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fan_commands_total",
			Help: "Fan-mode commands by outcome.",
		}, []string{"result"}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cpu_usage_percent",
			Help: "Mean CPU utilisation of the last snapshot.",
		}),
		memoryUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "memory_usage_percent",
			Help: "Memory utilisation of the last snapshot.",
		}),
		cpuTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cpu_temperature_celsius",
			Help: "CPU temperature of the last snapshot (NaN when unknown).",
		}),
		powerScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "power_score",
			Help: "Power score of the last snapshot.",
		}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.ticks, c.serializeErrors, c.unicastErrors, c.evictions,
		c.datagrams, c.fanCommands,
		c.cpuUsage, c.memoryUsage, c.cpuTemp, c.powerScore,
	)
	return c
}

// GaugeFunc registers a gauge whose value is read from fn at scrape time.
func (c *Collectors) GaugeFunc(name, help string, fn func() float64) {
	if c == nil {
		return
	}
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Name: name, Help: help,
	}, fn))
}

func (c *Collectors) TickCompleted() {
	if c != nil {
		c.ticks.Inc()
	}
}

func (c *Collectors) SerializeFailed() {
	if c != nil {
		c.serializeErrors.Inc()
	}
}

func (c *Collectors) UnicastFailed() {
	if c != nil {
		c.unicastErrors.Inc()
	}
}

func (c *Collectors) ClientsEvicted(n int) {
	if c != nil && n > 0 {
		c.evictions.Add(float64(n))
	}
}

func (c *Collectors) DatagramReceived(kind string) {
	if c != nil {
		c.datagrams.WithLabelValues(kind).Inc()
	}
}

func (c *Collectors) FanCommand(result string) {
	if c != nil {
		c.fanCommands.WithLabelValues(result).Inc()
	}
}

// ObserveSnapshot mirrors the headline snapshot values into gauges.
func (c *Collectors) ObserveSnapshot(snap models.MetricsSnapshot) {
	if c == nil {
		return
	}
	c.cpuUsage.Set(float64(snap.CPUUsage))
	c.memoryUsage.Set(float64(snap.MemoryUsage))
	c.powerScore.Set(float64(snap.PowerScore))
	if snap.CPUTemp != nil {
		c.cpuTemp.Set(float64(*snap.CPUTemp))
	} else {
		c.cpuTemp.Set(math.NaN())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (c *Collectors) Gatherer() prometheus.Gatherer {
	return c.registry
}
