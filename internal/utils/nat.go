package utils

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	natlib "github.com/libp2p/go-nat"
)

// NAT is the gateway handle returned by discovery.
type NAT = natlib.NAT

var (
	natOnce      sync.Once
	cachedNAT    NAT
	cachedNATErr error
)

// DiscoverNAT locates a UPnP or NAT-PMP gateway. The result is cached for the
// process lifetime because SSDP discovery takes seconds.
func DiscoverNAT(ctx context.Context) (NAT, error) {
	natOnce.Do(func() {
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		cachedNAT, cachedNATErr = natlib.DiscoverGateway(c)
	})
	return cachedNAT, cachedNATErr
}

// PortMapping is one internal port to expose through the gateway.
type PortMapping struct {
	Protocol string // "tcp" or "udp"
	Port     int
}

func (m PortMapping) String() string {
	return fmt.Sprintf("%s %d", m.Protocol, m.Port)
}

// portMapper is the subset of NAT used by PortForwarder.
type portMapper interface {
	AddPortMapping(ctx context.Context, protocol string, internalPort int, description string, timeout time.Duration) (int, error)
	DeletePortMapping(ctx context.Context, protocol string, internalPort int) error
	GetExternalAddress() (net.IP, error)
}

// PortForwarder keeps gateway mappings alive for the listen ports and
// removes them on Stop.
type PortForwarder struct {
	Description string
	Lease       time.Duration

	mappings []PortMapping
	discover func(ctx context.Context) (portMapper, error)
	logger   *Logger

	mu       sync.Mutex
	external map[PortMapping]int
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewPortForwarder maps the given ports through the discovered gateway.
func NewPortForwarder(logger *Logger, lease time.Duration, mappings ...PortMapping) *PortForwarder {
	return &PortForwarder{
		Description: "holodash",
		Lease:       lease,
		mappings:    mappings,
		logger:      logger,
		external:    make(map[PortMapping]int),
		discover: func(ctx context.Context) (portMapper, error) {
			n, err := DiscoverNAT(ctx)
			if err != nil {
				return nil, err
			}
			if n == nil {
				return nil, fmt.Errorf("no NAT gateway found")
			}
			return n, nil
		},
	}
}

// Start maps every port once, then refreshes at half the lease until Stop.
func (f *PortForwarder) Start(ctx context.Context) {
	f.mu.Lock()
	if f.stop != nil {
		f.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	f.stop = stop
	f.mu.Unlock()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.Refresh(ctx)
		interval := f.Lease / 2
		if interval <= 0 {
			interval = time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f.Refresh(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Refresh (re)creates every mapping and returns how many succeeded.
func (f *PortForwarder) Refresh(ctx context.Context) int {
	gw, err := f.discover(ctx)
	if err != nil {
		f.logf("Port forward unavailable: %v", err)
		return 0
	}
	ok := 0
	for _, m := range f.mappings {
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		ext, err := gw.AddPortMapping(c, m.Protocol, m.Port, f.Description, f.Lease)
		cancel()
		if err != nil {
			f.logf("Port forward %s failed: %v", m, err)
			continue
		}
		ok++
		f.mu.Lock()
		prev, seen := f.external[m]
		f.external[m] = ext
		f.mu.Unlock()
		if !seen || prev != ext {
			if ip, err := gw.GetExternalAddress(); err == nil {
				f.logf("Port forward active: %s -> %s:%d", m, ip, ext)
			} else {
				f.logf("Port forward active: %s -> external %d", m, ext)
			}
		}
	}
	return ok
}

// External returns the external port assigned to a mapping, if any.
func (f *PortForwarder) External(m PortMapping) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	port, ok := f.external[m]
	return port, ok
}

// Stop ends the refresh loop and deletes the mappings it created.
func (f *PortForwarder) Stop(ctx context.Context) {
	f.mu.Lock()
	stop := f.stop
	f.stop = nil
	f.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	f.wg.Wait()

	f.mu.Lock()
	active := make([]PortMapping, 0, len(f.external))
	for m := range f.external {
		active = append(active, m)
	}
	f.external = make(map[PortMapping]int)
	f.mu.Unlock()
	if len(active) == 0 {
		return
	}

	gw, err := f.discover(ctx)
	if err != nil {
		return
	}
	for _, m := range active {
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := gw.DeletePortMapping(c, m.Protocol, m.Port); err != nil {
			f.logf("Port forward removal %s failed: %v", m, err)
		} else {
			f.logf("Port forward removed: %s", m)
		}
		cancel()
	}
}

func (f *PortForwarder) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if f.logger != nil {
		f.logger.Write(msg)
		return
	}
	log.Println(msg)
}
