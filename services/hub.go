package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types pushed to dashboard viewers. Receivers must ignore types they
// do not recognize so new kinds can be added without breaking old clients.
const (
	EventSubmissionUpdated = "SUBMISSION_UPDATED"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Event is the envelope for every frame pushed over the dashboard socket.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubmissionDelta is the payload of a SUBMISSION_UPDATED event. It carries
// status and freshness only, never the prose, so it stays small no matter
// how long the essay gets.
type SubmissionDelta struct {
	SubmissionID string     `json:"id"`
	StudentID    string     `json:"student_id"`
	ProjectID    string     `json:"project_id"`
	Status       string     `json:"status"`
	UpdatedAt    time.Time  `json:"updated_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	WordCount    int        `json:"word_count"`
}

// Broadcaster is what the submission service needs from the push channel.
type Broadcaster interface {
	BroadcastSubmission(delta SubmissionDelta)
}

// Hub fans lifecycle events out to every connected dashboard viewer.
// Delivery is best-effort: there is no replay log, and a viewer that cannot
// keep up is dropped rather than allowed to stall the others.
type Hub struct {
	mu      sync.Mutex
	clients map[*DashboardClient]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*DashboardClient]bool)}
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastSubmission pushes one delta to all connected viewers.
func (h *Hub) BroadcastSubmission(delta SubmissionDelta) {
	h.BroadcastEvent(Event{Type: EventSubmissionUpdated, Data: delta})
}

// BroadcastEvent marshals the envelope once and queues it on every client.
func (h *Hub) BroadcastEvent(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub: failed to marshal %s event: %v", event.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Full buffer means the peer stopped reading.
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) register(client *DashboardClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

func (h *Hub) unregister(client *DashboardClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// DashboardClient is one viewer connection. Writes go through the send
// channel because gorilla connections allow only a single writer.
type DashboardClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// ServeConn attaches an upgraded connection to the hub and starts its pumps.
func (h *Hub) ServeConn(conn *websocket.Conn) {
	client := &DashboardClient{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

// readPump drains inbound frames. Dashboards have nothing to say to the
// server; reading is only for liveness and close detection.
func (c *DashboardClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("hub: viewer connection error: %v", err)
			}
			return
		}
	}
}

func (c *DashboardClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub dropped this client.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
