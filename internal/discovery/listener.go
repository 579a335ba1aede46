package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/netip"
	"strings"

	"holodash/internal/metrics"
	"holodash/internal/middleware"
	"holodash/internal/probe"
	"holodash/internal/utils"
)

// Registrar records peer liveness. Upsert reports first registrations.
type Registrar interface {
	Upsert(addr netip.AddrPort) bool
}

// Listener dispatches inbound datagrams. Each datagram is handled on its own;
// the only state touched is the registrar.
type Listener struct {
	conn     *net.UDPConn
	registry Registrar
	fan      probe.FanController
	fanLimit *middleware.RateLimiter
	metrics  *metrics.Collectors
	logger   *utils.Logger
}

// NewListener wires a listener to an already bound socket.
func NewListener(conn *net.UDPConn, registry Registrar, fan probe.FanController, logger *utils.Logger) *Listener {
	return &Listener{
		conn:     conn,
		registry: registry,
		fan:      fan,
		logger:   logger,
	}
}

// WithFanLimiter throttles fan commands per peer address.
func (l *Listener) WithFanLimiter(rl *middleware.RateLimiter) *Listener {
	l.fanLimit = rl
	return l
}

// WithMetrics counts datagrams and fan command outcomes.
func (l *Listener) WithMetrics(m *metrics.Collectors) *Listener {
	l.metrics = m
	return l
}

// Serve reads datagrams until ctx is cancelled or the socket is closed.
// Fan commands run on their own goroutine so a slow subprocess does not
// delay heartbeats from other peers.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	buf := make([]byte, MaxDatagramSize)
	for {
		n, from, err := l.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.logf("UDP receive error: %v", err)
			continue
		}
		payload := append([]byte(nil), buf[:n]...)
		if Classify(payload) == KindFan {
			go l.respond(ctx, payload, from)
			continue
		}
		l.respond(ctx, payload, from)
	}
}

func (l *Listener) respond(ctx context.Context, payload []byte, from netip.AddrPort) {
	reply := l.Handle(ctx, payload, from)
	if reply == nil {
		return
	}
	if _, err := l.conn.WriteToUDPAddrPort(reply, from); err != nil {
		l.logf("UDP reply to %s failed: %v", from, err)
	}
}

// Handle processes one datagram from addr and returns the reply to send, or
// nil when the command has no reply.
func (l *Listener) Handle(ctx context.Context, payload []byte, from netip.AddrPort) []byte {
	kind := Classify(payload)
	l.metrics.DatagramReceived(kind.String())

	switch kind {
	case KindDiscover:
		l.logf("Discovery request from %s", from)
		l.registry.Upsert(from)
		return []byte(AckToken)

	case KindHeartbeat:
		if l.registry.Upsert(from) {
			l.logf("New client: %s", from)
		}
		return nil

	case KindFan:
		reply := l.handleFan(ctx, ParseFanMode(payload), from)
		// command traffic counts as a heartbeat
		l.registry.Upsert(from)
		return reply

	default:
		return nil
	}
}

func (l *Listener) handleFan(ctx context.Context, mode string, from netip.AddrPort) []byte {
	l.logf("Fan mode %q requested by %s", mode, from)
	if !l.fanLimit.Allow(from.Addr().String()) {
		l.metrics.FanCommand("rate_limited")
		return fanErr("rate limited")
	}
	if l.fan == nil {
		l.metrics.FanCommand("not_found")
		return fanErr(probe.ErrToolNotFound.Error())
	}

	out, err := l.fan.SetFanMode(ctx, mode)
	switch {
	case err == nil:
		l.metrics.FanCommand("ok")
		l.logf("Fan mode set: %s", mode)
		if msg := strings.TrimSpace(out); msg != "" {
			l.logf("%s", msg)
		}
		return fanOK(mode)
	case errors.Is(err, probe.ErrToolNotFound):
		l.metrics.FanCommand("not_found")
		l.logf("Fan mode %q failed: %v", mode, err)
		return fanErr(err.Error())
	default:
		l.metrics.FanCommand("error")
		l.logf("Fan mode %q failed: %v", mode, err)
		return fanErr(err.Error())
	}
}

func (l *Listener) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.logger != nil {
		l.logger.Write(msg)
		return
	}
	log.Println(msg)
}
