package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffer   = 32
	defaultTickDur = 20 * time.Second
)

// FeedClient represents a single connected admin dashboard client.
type FeedClient struct {
	Conn *websocket.Conn
	Send chan []byte
}

// NewFeedClient wraps an upgraded connection.
func NewFeedClient(conn *websocket.Conn) *FeedClient {
	return &FeedClient{Conn: conn, Send: make(chan []byte, clientBuffer)}
}

// FeedMessage is the envelope sent to dashboard clients.
type FeedMessage struct {
	Type  string         `json:"type"` // "lead" or "stats"
	Lead  *LeadSummary   `json:"lead,omitempty"`
	Stats *FeedStatsBody `json:"stats,omitempty"`
}

// LeadSummary is the subset of a snapshot pushed live.
type LeadSummary struct {
	ID            string    `json:"id"`
	LeadCode      string    `json:"leadCode"`
	Trigger       string    `json:"trigger"`
	InterestScore int       `json:"interestScore"`
	VisitCount    int       `json:"visitCount"`
	Name          string    `json:"name,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// FeedStatsBody is broadcast on every tick.
type FeedStatsBody struct {
	ActiveTrackers int       `json:"activeTrackers"`
	LeadsSinceBoot int       `json:"leadsSinceBoot"`
	Clients        int       `json:"clients"`
	At             time.Time `json:"at"`
}

// LeadFeed manages all connected admin clients and broadcasts data.
type LeadFeed struct {
	clients    map[*FeedClient]bool
	register   chan *FeedClient
	unregister chan *FeedClient
	broadcast  chan []byte
	done       chan struct{}
	activity   ActivitySource
	logger     *logging.ChanneledLogger
	tick       time.Duration
	leadCount  int
	mu         sync.RWMutex
}

// NewLeadFeed creates a new feed instance. activity may be nil.
func NewLeadFeed(activity ActivitySource, logger *logging.ChanneledLogger) *LeadFeed {
	return &LeadFeed{
		clients:    make(map[*FeedClient]bool),
		register:   make(chan *FeedClient),
		unregister: make(chan *FeedClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		activity:   activity,
		logger:     logger,
		tick:       defaultTickDur,
	}
}

// SetActivitySource wires the tracker registry after construction.
func (f *LeadFeed) SetActivitySource(activity ActivitySource) {
	f.mu.Lock()
	f.activity = activity
	f.mu.Unlock()
}

// Run starts the feed's main loop. This should be run as a goroutine.
func (f *LeadFeed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.tick)
	defer ticker.Stop()
	defer close(f.done)

	for {
		select {
		case <-ctx.Done():
			f.mu.Lock()
			for client := range f.clients {
				delete(f.clients, client)
				close(client.Send)
			}
			f.mu.Unlock()
			f.logger.Feed().Info("Lead feed stopped")
			return

		case client := <-f.register:
			f.mu.Lock()
			f.clients[client] = true
			count := len(f.clients)
			f.mu.Unlock()
			f.logger.Feed().Info("Feed client registered", "clients", count)

		case client := <-f.unregister:
			f.mu.Lock()
			if _, ok := f.clients[client]; ok {
				delete(f.clients, client)
				close(client.Send)
			}
			count := len(f.clients)
			f.mu.Unlock()
			f.logger.Feed().Info("Feed client unregistered", "clients", count)

		case message := <-f.broadcast:
			f.fanOut(message)

		case <-ticker.C:
			f.broadcastStats()
		}
	}
}

// Register queues a client for registration.
func (f *LeadFeed) Register(client *FeedClient) {
	select {
	case f.register <- client:
	case <-f.done:
		close(client.Send)
	}
}

// Unregister queues a client for unregistration.
func (f *LeadFeed) Unregister(client *FeedClient) {
	select {
	case f.unregister <- client:
	case <-f.done:
	}
}

// ClientCount returns the number of connected clients.
func (f *LeadFeed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// PublishLead queues a persisted lead for every client. It never blocks the
// caller; when the queue is full the message is dropped.
func (f *LeadFeed) PublishLead(snapshot *lead.Snapshot) {
	if snapshot == nil {
		return
	}
	f.mu.Lock()
	f.leadCount++
	f.mu.Unlock()

	message, err := json.Marshal(FeedMessage{
		Type: "lead",
		Lead: &LeadSummary{
			ID:            snapshot.ID,
			LeadCode:      snapshot.LeadCode,
			Trigger:       string(snapshot.Trigger),
			InterestScore: snapshot.InterestScore,
			VisitCount:    snapshot.VisitCount,
			Name:          snapshot.Name,
			CreatedAt:     snapshot.CreatedAt,
		},
	})
	if err != nil {
		f.logger.Feed().Error("Error marshaling lead for feed", "error", err.Error())
		return
	}

	select {
	case f.broadcast <- message:
	default:
		f.logger.Feed().Warn("Lead feed queue full, dropping message", "leadCode", snapshot.LeadCode)
	}
}

func (f *LeadFeed) broadcastStats() {
	f.mu.RLock()
	if len(f.clients) == 0 {
		f.mu.RUnlock()
		return
	}
	stats := FeedStatsBody{
		LeadsSinceBoot: f.leadCount,
		Clients:        len(f.clients),
		At:             time.Now(),
	}
	activity := f.activity
	f.mu.RUnlock()

	if activity != nil {
		stats.ActiveTrackers = activity.ActiveTrackers()
	}

	message, err := json.Marshal(FeedMessage{Type: "stats", Stats: &stats})
	if err != nil {
		f.logger.Feed().Error("Error marshaling feed stats", "error", err.Error())
		return
	}
	f.fanOut(message)
}

func (f *LeadFeed) fanOut(message []byte) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for client := range f.clients {
		select {
		case client.Send <- message:
		default:
		}
	}
}

// WritePump forwards queued messages to the connection and keeps it alive
// with pings. It returns when Send is closed or a write fails.
func (c *FeedClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump drains client frames until the connection closes, then
// unregisters the client.
func (c *FeedClient) ReadPump(feed *LeadFeed) {
	defer feed.Unregister(c)

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
