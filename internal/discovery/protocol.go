// Package discovery serves the datagram protocol used by peripherals to
// announce themselves, keep their registration alive and change the fan mode.
package discovery

import (
	"bytes"
	"strings"
)

const (
	prefixDiscover = "DISCOVER"
	prefixHello    = "HELLO"
	prefixPing     = "PING"
	prefixFan      = "FAN:"

	// AckToken is the reply to a discovery request.
	AckToken = "SERVER"

	fanOKPrefix  = "FAN_OK:"
	fanErrPrefix = "FAN_ERR:"

	// MaxDatagramSize is the read buffer for inbound commands.
	MaxDatagramSize = 64
)

// Kind classifies an inbound datagram.
type Kind int

const (
	KindUnknown Kind = iota
	KindDiscover
	KindHeartbeat
	KindFan
)

func (k Kind) String() string {
	switch k {
	case KindDiscover:
		return "discover"
	case KindHeartbeat:
		return "heartbeat"
	case KindFan:
		return "fan"
	default:
		return "unknown"
	}
}

// Classify matches payload against the known command prefixes.
func Classify(payload []byte) Kind {
	switch {
	case bytes.HasPrefix(payload, []byte(prefixDiscover)):
		return KindDiscover
	case bytes.HasPrefix(payload, []byte(prefixHello)), bytes.HasPrefix(payload, []byte(prefixPing)):
		return KindHeartbeat
	case bytes.HasPrefix(payload, []byte(prefixFan)):
		return KindFan
	default:
		return KindUnknown
	}
}

// ParseFanMode extracts the lower-cased mode from a FAN:<mode> command.
func ParseFanMode(payload []byte) string {
	mode := strings.TrimPrefix(strings.ToValidUTF8(string(payload), "�"), prefixFan)
	return strings.ToLower(strings.TrimSpace(mode))
}

func fanOK(mode string) []byte {
	return []byte(fanOKPrefix + mode)
}

func fanErr(message string) []byte {
	return []byte(fanErrPrefix + strings.Join(strings.Fields(message), " "))
}
