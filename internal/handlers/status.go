// Package handlers serves the read-only HTTP surface that shares a port with
// the WebSocket stream.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"holodash/internal/models"
	"holodash/internal/version"
)

// SnapshotSource returns the most recent snapshot; ok is false before the first tick.
type SnapshotSource interface {
	Latest() (snap models.MetricsSnapshot, at time.Time, ok bool)
}

// ClientLister lists registered datagram peers.
type ClientLister interface {
	Records() []models.ClientRecord
}

// SubscriberCounter reports the number of attached stream sessions.
type SubscriberCounter interface {
	Count() int
}

type StatusHandlers struct {
	snapshots SnapshotSource
	clients   ClientLister
	streams   SubscriberCounter
	now       func() time.Time
}

func NewStatusHandlers(snapshots SnapshotSource, clients ClientLister, streams SubscriberCounter) *StatusHandlers {
	return &StatusHandlers{
		snapshots: snapshots,
		clients:   clients,
		streams:   streams,
		now:       time.Now,
	}
}

func (h *StatusHandlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports ready once the sampling loop has produced a snapshot.
func (h *StatusHandlers) Readyz(c *gin.Context) {
	_, at, ok := h.snapshots.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "reason": "no snapshot yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true, "last_tick": at.Format(time.RFC3339Nano)})
}

func (h *StatusHandlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Current())
}

// APISnapshot returns the latest snapshot in the same shape as the stream.
func (h *StatusHandlers) APISnapshot(c *gin.Context) {
	snap, _, ok := h.snapshots.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No snapshot available yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// APIClients lists datagram peers with their idle time and the stream session count.
func (h *StatusHandlers) APIClients(c *gin.Context) {
	now := h.now()
	records := h.clients.Records()
	out := make([]models.ClientStatus, 0, len(records))
	for _, r := range records {
		out = append(out, models.ClientStatus{
			Address:  r.Addr.String(),
			LastSeen: r.LastSeen,
			IdleSecs: now.Sub(r.LastSeen).Seconds(),
		})
	}
	streams := 0
	if h.streams != nil {
		streams = h.streams.Count()
	}
	c.JSON(http.StatusOK, gin.H{
		"udp_clients":     out,
		"stream_sessions": streams,
	})
}
