package models

import (
	"net/netip"
	"time"
)

// ClientRecord tracks the liveness of one datagram-registered peripheral.
type ClientRecord struct {
	Addr     netip.AddrPort
	LastSeen time.Time
}
