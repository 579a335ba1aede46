package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"holodash/internal/models"
	"holodash/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	// DefaultQueueSize bounds each subscriber's backlog. A subscriber that
	// falls further behind loses its oldest payloads.
	DefaultQueueSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard pages are opened from file:// and LAN hosts
	},
}

// subscriber is one streaming session's outbound queue.
type subscriber struct {
	queue chan []byte
}

// offer enqueues payload, discarding the oldest queued payload when full.
func (s *subscriber) offer(payload []byte) {
	for {
		select {
		case s.queue <- payload:
			return
		default:
		}
		select {
		case <-s.queue:
		default:
		}
	}
}

// Hub fans each published snapshot out to every streaming session. Publish
// never blocks on a slow session.
type Hub struct {
	subscribers map[*subscriber]struct{}
	mutex       sync.RWMutex
	queueSize   int
	logger      *utils.Logger
}

func NewHub(logger *utils.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		queueSize:   DefaultQueueSize,
		logger:      logger,
	}
}

// Publish delivers payload to every attached subscriber.
func (h *Hub) Publish(payload []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for sub := range h.subscribers {
		sub.offer(payload)
	}
}

// Subscribe attaches a new subscriber and returns its queue with a detach func.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	sub := &subscriber{queue: make(chan []byte, h.queueSize)}
	h.mutex.Lock()
	h.subscribers[sub] = struct{}{}
	h.mutex.Unlock()

	var once sync.Once
	return sub.queue, func() {
		once.Do(func() {
			h.mutex.Lock()
			delete(h.subscribers, sub)
			h.mutex.Unlock()
		})
	}
}

// Count returns the number of attached subscribers.
func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.subscribers)
}

// HandleWebSocket upgrades the request and streams snapshots until the peer
// goes away. Inbound messages are read only to detect close.
func (h *Hub) HandleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logf("WebSocket upgrade error: %v", err)
			return
		}
		peer := conn.RemoteAddr().String()
		h.logf("WebSocket client connected: %s", peer)
		defer func() {
			conn.Close()
			h.logf("WebSocket client disconnected: %s", peer)
		}()

		welcome, _ := json.Marshal(models.NewWelcome())
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, welcome); err != nil {
			return
		}

		queue, detach := h.Subscribe()
		defer detach()

		closed := make(chan struct{})
		go h.readUntilClosed(conn, closed)

		pingTicker := time.NewTicker(pingPeriod)
		defer pingTicker.Stop()

		for {
			select {
			case payload := <-queue:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			case <-pingTicker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}
}

func (h *Hub) readUntilClosed(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				h.logf("WebSocket error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if h.logger != nil {
		h.logger.Write(msg)
		return
	}
	log.Println(msg)
}
