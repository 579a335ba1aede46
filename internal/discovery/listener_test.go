package discovery

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/netip"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"holodash/internal/middleware"
	"holodash/internal/probe"
	"holodash/internal/registry"
	"holodash/internal/utils"
)

type fakeFan struct {
	modes []string
	out   string
	err   error
}

func (f *fakeFan) SetFanMode(_ context.Context, mode string) (string, error) {
	f.modes = append(f.modes, mode)
	return f.out, f.err
}

var peer = netip.MustParseAddrPort("192.168.1.50:40000")

func newTestListener(fan probe.FanController) (*Listener, *registry.Registry, *bytes.Buffer) {
	reg := registry.New()
	var logs bytes.Buffer
	return NewListener(nil, reg, fan, utils.NewWriterLogger(&logs)), reg, &logs
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"DISCOVER":      KindDiscover,
		"DISCOVER v2":   KindDiscover,
		"HELLO":         KindHeartbeat,
		"PING":          KindHeartbeat,
		"FAN:TURBO":     KindFan,
		"FAN":           KindUnknown,
		"hello":         KindUnknown,
		"":              KindUnknown,
		"STATUS please": KindUnknown,
	}
	for in, want := range cases {
		if got := Classify([]byte(in)); got != want {
			t.Fatalf("Classify(%q)=%v, want %v", in, got, want)
		}
	}
}

func TestParseFanMode(t *testing.T) {
	if got := ParseFanMode([]byte("FAN: SILENT \n")); got != "silent" {
		t.Fatalf("mode=%q", got)
	}
	if got := ParseFanMode([]byte("FAN:Auto")); got != "auto" {
		t.Fatalf("mode=%q", got)
	}
}

func TestDiscoverRepliesAndRegisters(t *testing.T) {
	l, reg, _ := newTestListener(&fakeFan{})
	reply := l.Handle(context.Background(), []byte("DISCOVER"), peer)
	if string(reply) != AckToken {
		t.Fatalf("reply=%q, want %q", reply, AckToken)
	}
	live := reg.Live()
	if len(live) != 1 || live[0] != peer {
		t.Fatalf("live=%v", live)
	}
}

func TestHeartbeatLogsOnlyFirstRegistration(t *testing.T) {
	l, reg, logs := newTestListener(&fakeFan{})
	for i := 0; i < 5; i++ {
		if reply := l.Handle(context.Background(), []byte("HELLO"), peer); reply != nil {
			t.Fatalf("heartbeat should not be answered, got %q", reply)
		}
		l.Handle(context.Background(), []byte("PING"), peer)
	}
	if n := strings.Count(logs.String(), "New client"); n != 1 {
		t.Fatalf("new client events=%d, want 1\n%s", n, logs.String())
	}
	if reg.Len() != 1 {
		t.Fatalf("len=%d", reg.Len())
	}
}

func TestUnknownDatagramIgnored(t *testing.T) {
	l, reg, _ := newTestListener(&fakeFan{})
	if reply := l.Handle(context.Background(), []byte("GARBAGE"), peer); reply != nil {
		t.Fatalf("reply=%q", reply)
	}
	if reg.Len() != 0 {
		t.Fatalf("unknown datagram registered the sender")
	}
}

func TestFanSuccess(t *testing.T) {
	fan := &fakeFan{out: "Fan mode: turbo\n"}
	l, reg, _ := newTestListener(fan)
	reply := l.Handle(context.Background(), []byte("FAN:TURBO"), peer)
	if string(reply) != "FAN_OK:turbo" {
		t.Fatalf("reply=%q", reply)
	}
	if len(fan.modes) != 1 || fan.modes[0] != "turbo" {
		t.Fatalf("modes=%v", fan.modes)
	}
	if reg.Len() != 1 {
		t.Fatalf("fan command did not refresh liveness")
	}
}

func TestFanSubprocessFailure(t *testing.T) {
	fan := &fakeFan{err: &probe.CommandError{Stderr: "sudo: a password is required\n", Err: errors.New("exit status 1")}}
	l, reg, _ := newTestListener(fan)
	reply := l.Handle(context.Background(), []byte("FAN:silent"), peer)
	if string(reply) != "FAN_ERR:sudo: a password is required" {
		t.Fatalf("reply=%q", reply)
	}
	if reg.Len() != 1 {
		t.Fatalf("failed fan command did not refresh liveness")
	}

	fan.err = &probe.CommandError{Stderr: "temp_sensor: SMC write failed\n  key F0Md: 0x84\nhint: run as root\n", Err: errors.New("exit status 2")}
	reply = l.Handle(context.Background(), []byte("FAN:silent"), peer)
	if string(reply) != "FAN_ERR:temp_sensor: SMC write failed key F0Md: 0x84 hint: run as root" {
		t.Fatalf("multi-line stderr reply=%q", reply)
	}
	if bytes.ContainsAny(reply, "\r\n") {
		t.Fatalf("reply spans lines: %q", reply)
	}
}

func TestFanToolNotFound(t *testing.T) {
	fan := probe.NewFanControl([]string{filepath.Join(t.TempDir(), "temp_sensor")}, nil)
	l, reg, _ := newTestListener(fan)
	reply := l.Handle(context.Background(), []byte("FAN:quiet"), peer)
	if !bytes.HasPrefix(reply, []byte("FAN_ERR:")) || !strings.Contains(string(reply), "not found") {
		t.Fatalf("reply=%q, want FAN_ERR with not found", reply)
	}
	if reg.Len() != 1 {
		t.Fatalf("liveness not refreshed after missing tool")
	}
}

func TestFanRateLimited(t *testing.T) {
	fan := &fakeFan{}
	l, reg, _ := newTestListener(fan)
	rl := middleware.NewRateLimiter(rate.Every(time.Hour), 1)
	defer rl.Stop()
	l.WithFanLimiter(rl)

	if reply := l.Handle(context.Background(), []byte("FAN:auto"), peer); string(reply) != "FAN_OK:auto" {
		t.Fatalf("first reply=%q", reply)
	}
	if reply := l.Handle(context.Background(), []byte("FAN:turbo"), peer); string(reply) != "FAN_ERR:rate limited" {
		t.Fatalf("second reply=%q", reply)
	}
	if len(fan.modes) != 1 {
		t.Fatalf("throttled command reached the tool: %v", fan.modes)
	}
	if reg.Len() != 1 {
		t.Fatalf("throttled command did not refresh liveness")
	}
}

func TestServeOverLoopback(t *testing.T) {
	server, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	reg := registry.New()
	l := NewListener(server, reg, &fakeFan{}, utils.NewWriterLogger(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	client, err := net.DialUDP("udp4", nil, server.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("DISCOVER")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != AckToken {
		t.Fatalf("reply=%q", buf[:n])
	}

	clientAddr := client.LocalAddr().(*net.UDPAddr).AddrPort()
	live := reg.Live()
	if len(live) != 1 || live[0] != netip.AddrPortFrom(clientAddr.Addr().Unmap(), clientAddr.Port()) {
		t.Fatalf("live=%v, client=%v", live, clientAddr)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not stop after cancel")
	}
}
