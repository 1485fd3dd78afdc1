// Package realtime streams verdict events to WebSocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"Veritas/internal/domain/models"
	domsvc "Veritas/internal/domain/service"
	svcmetrics "Veritas/internal/service/metrics"
	xlogger "Veritas/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

var normalCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		host := r.Host
		return origin == "http://"+host || origin == "https://"+host
	},
}

// Subscription narrows what a client receives. The zero value receives everything.
// MinTier compares tier ranks, so it also filters out NAV events, which carry no tier.
type Subscription struct {
	Kinds   []models.EvaluationKind `json:"kinds"`
	MinTier models.Tier             `json:"min_tier"`
}

func (s Subscription) matches(ev *models.VerdictEvent) bool {
	if len(s.Kinds) > 0 {
		found := false
		for _, k := range s.Kinds {
			if k == ev.Kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s.MinTier != "" {
		return tierOf(ev.Verdict).Rank() >= s.MinTier.Rank()
	}
	return true
}

// valid rejects tier names the engine never emits.
func (s Subscription) valid() bool {
	return s.MinTier == "" || s.MinTier.Rank() >= 0
}

func tierOf(v interface{}) models.Tier {
	switch x := v.(type) {
	case models.LeverageVerdict:
		return x.Tier
	case models.KYCVerdict:
		return x.Tier
	case models.RiskVerdict:
		return x.Tier
	}
	return ""
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	mu   sync.RWMutex
	sub  Subscription
}

func (c *client) subscription() Subscription {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sub
}

// Hub fans verdict events out to connected clients. Slow clients are dropped
// rather than allowed to stall the feed.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan *models.VerdictEvent
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	log        *xlogger.Logger
	done       chan struct{}
	maxClients int

	totalEvents atomic.Int64
}

func NewHub(log *xlogger.Logger, maxClients int) *Hub {
	if log == nil {
		log = xlogger.Nop()
	}
	if maxClients <= 0 {
		maxClients = 1000
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan *models.VerdictEvent, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		log:        log,
		done:       make(chan struct{}),
		maxClients: maxClients,
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.log.Info("verdict hub started")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			svcmetrics.RealtimeClients.Set(0)
			h.log.Info("verdict hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			svcmetrics.RealtimeClients.Set(float64(n))
			h.log.Debug("feed client connected", xlogger.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			svcmetrics.RealtimeClients.Set(float64(n))
			h.log.Debug("feed client disconnected", xlogger.Int("clients", n))

		case ev := <-h.broadcast:
			h.totalEvents.Add(1)
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev *models.VerdictEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("verdict event encode failed", xlogger.String("id", ev.ID), xlogger.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		if !c.subscription().matches(ev) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range slow {
		if _, ok := h.clients[c]; ok {
			close(c.send)
			delete(h.clients, c)
			svcmetrics.RealtimeDropped.WithLabelValues("slow_client").Inc()
		}
	}
	svcmetrics.RealtimeClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
}

// PublishVerdict queues ev for broadcast without blocking the caller.
func (h *Hub) PublishVerdict(_ context.Context, ev models.VerdictEvent) error {
	select {
	case h.broadcast <- &ev:
	default:
		svcmetrics.RealtimeDropped.WithLabelValues("queue_full").Inc()
		h.log.Warn("verdict feed queue full, dropping event", xlogger.String("id", ev.ID))
	}
	return nil
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) TotalEvents() int64 { return h.totalEvents.Load() }

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/verdicts", echo.WrapHandler(http.HandlerFunc(h.HandleWebSocket)))
}

// HandleWebSocket upgrades the request and attaches the connection to the hub.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}
	if h.Len() >= h.maxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", xlogger.Error(err))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump applies subscription updates sent by the client.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, normalCloseCodes...) {
				c.hub.log.Debug("websocket read ended", xlogger.Error(err))
			}
			return
		}
		var sub Subscription
		if err := json.Unmarshal(msg, &sub); err != nil {
			continue
		}
		if !sub.valid() {
			c.hub.log.Debug("websocket subscription ignored", xlogger.String("min_tier", string(sub.MinTier)))
			continue
		}
		c.mu.Lock()
		c.sub = sub
		c.mu.Unlock()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ domsvc.VerdictPublisher = (*Hub)(nil)
