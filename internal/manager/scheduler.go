// Package manager drives the sampling loop: one snapshot per tick, fanned out
// to the WebSocket hub and unicast to every registered UDP peer.
package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/netip"
	"sync"
	"time"

	"holodash/internal/metrics"
	"holodash/internal/models"
	"holodash/internal/utils"
)

const (
	// TickPeriod is the interval between snapshots.
	TickPeriod = 100 * time.Millisecond
	// ClientTimeout is how long a UDP peer stays registered without traffic.
	ClientTimeout = 10 * time.Second
	// WarmUp delays the first tick so CPU counters have a baseline.
	WarmUp = 500 * time.Millisecond
)

// Sampler produces one snapshot per call and never fails.
type Sampler interface {
	Sample(ctx context.Context) models.MetricsSnapshot
}

// Publisher fans a serialized snapshot out to stream subscribers.
type Publisher interface {
	Publish(payload []byte)
}

// ClientSet is the liveness registry as seen by the scheduler.
type ClientSet interface {
	EvictExpired(timeout time.Duration) []netip.AddrPort
	Live() []netip.AddrPort
}

// Sender delivers a datagram to a peer. *net.UDPConn satisfies it.
type Sender interface {
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
}

// Scheduler owns the tick loop. The sampler's internal cache is only touched
// from the loop goroutine.
type Scheduler struct {
	sampler Sampler
	hub     Publisher
	clients ClientSet
	sender  Sender
	metrics *metrics.Collectors
	logger  *utils.Logger

	period  time.Duration
	timeout time.Duration
	warmUp  time.Duration

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup

	latestMu sync.RWMutex
	latest   *models.MetricsSnapshot
	latestAt time.Time
}

// NewScheduler wires the loop. hub, clients and sender may be nil to disable
// the corresponding transport.
func NewScheduler(sampler Sampler, hub Publisher, clients ClientSet, sender Sender, logger *utils.Logger) *Scheduler {
	return &Scheduler{
		sampler: sampler,
		hub:     hub,
		clients: clients,
		sender:  sender,
		logger:  logger,
		period:  TickPeriod,
		timeout: ClientTimeout,
		warmUp:  WarmUp,
	}
}

// WithMetrics records tick outcomes and the latest readings.
func (s *Scheduler) WithMetrics(m *metrics.Collectors) *Scheduler {
	s.metrics = m
	return s
}

// Start launches the tick loop. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.warmUp > 0 {
			select {
			case <-time.After(s.warmUp):
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
		ticker := time.NewTicker(s.period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Tick(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	s.wg.Wait()
}

// Tick runs one sampling cycle: sample, serialize once, publish, evict, then
// unicast to the remaining peers. It returns the serialization error, if any.
func (s *Scheduler) Tick(ctx context.Context) error {
	snap := s.sampler.Sample(ctx)
	s.storeLatest(snap)
	s.metrics.ObserveSnapshot(snap)

	payload, err := json.Marshal(snap)
	if err != nil {
		s.metrics.SerializeFailed()
		s.logf("Snapshot serialization failed: %v", err)
		return fmt.Errorf("serialize snapshot: %w", err)
	}

	if s.hub != nil {
		s.hub.Publish(payload)
	}

	if s.clients != nil {
		evicted := s.clients.EvictExpired(s.timeout)
		for _, addr := range evicted {
			s.logf("Client timed out: %s", addr)
		}
		s.metrics.ClientsEvicted(len(evicted))

		if s.sender != nil {
			for _, addr := range s.clients.Live() {
				if _, err := s.sender.WriteToUDPAddrPort(payload, addr); err != nil {
					// left for the liveness check to evict
					s.metrics.UnicastFailed()
				}
			}
		}
	}

	s.metrics.TickCompleted()
	return nil
}

// Latest returns the most recent snapshot and when it was taken. ok is false
// before the first tick.
func (s *Scheduler) Latest() (snap models.MetricsSnapshot, at time.Time, ok bool) {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	if s.latest == nil {
		return models.MetricsSnapshot{}, time.Time{}, false
	}
	return *s.latest, s.latestAt, true
}

func (s *Scheduler) storeLatest(snap models.MetricsSnapshot) {
	s.latestMu.Lock()
	s.latest = &snap
	s.latestAt = time.Now()
	s.latestMu.Unlock()
}

func (s *Scheduler) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.logger != nil {
		s.logger.Write(msg)
		return
	}
	log.Println(msg)
}
