package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/cardguess/game/engine"
	"github.com/wricardo/cardguess/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Time a guess handler may take before the reply is dropped.
	guessTimeout = 5 * time.Second
)

var ErrHubClosed = errors.New("websocket hub closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is the JSON object written to clients
type Frame struct {
	ScopeID string `json:"scope_id"`
	service.Message
	Code string `json:"code,omitempty"` // set on error replies
}

// GuessRequest is the JSON object clients send to guess
type GuessRequest struct {
	Player string `json:"player"`
	Text   string `json:"text"`
}

// GuessHandler evaluates a guess received over a socket. Returned errors are
// replied to the sending client only.
type GuessHandler func(ctx context.Context, scopeID, player, text string) error

// Client represents a WebSocket client subscribed to one scope
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	scopeID string
}

type broadcast struct {
	scopeID string
	data    []byte
}

type directMessage struct {
	client *Client
	data   []byte
}

type countRequest struct {
	scopeID string
	reply   chan int
}

// Hub maintains the set of active clients per scope and delivers round
// messages to them. It implements service.Notifier.
type Hub struct {
	// Registered clients by scope ID
	scopes map[string]map[*Client]bool

	broadcast  chan broadcast
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	counts     chan countRequest
	done       chan struct{}

	onGuess GuessHandler
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		scopes:     make(map[string]map[*Client]bool),
		broadcast:  make(chan broadcast, 64),
		direct:     make(chan directMessage, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countRequest),
		done:       make(chan struct{}),
	}
}

// SetGuessHandler routes guesses sent by clients. Call before Run.
func (h *Hub) SetGuessHandler(handler GuessHandler) {
	h.onGuess = handler
}

// Run starts the hub's event loop and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastMessage(msg.scopeID, msg.data)

		case msg := <-h.direct:
			h.sendDirect(msg.client, msg.data)

		case req := <-h.counts:
			req.reply <- len(h.scopes[req.scopeID])
		}
	}
}

// ServeWS upgrades the request and subscribes the connection to the
// scope named by the "scope" query parameter
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	scopeID := strings.TrimSpace(r.URL.Query().Get("scope"))
	if scopeID == "" {
		http.Error(w, "scope query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 256),
		scopeID: scopeID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Notify queues msg for every client subscribed to scopeID
func (h *Hub) Notify(ctx context.Context, scopeID string, msg service.Message) error {
	data, err := json.Marshal(Frame{ScopeID: scopeID, Message: msg})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- broadcast{scopeID: scopeID, data: data}:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of clients subscribed to scopeID
func (h *Hub) ClientCount(scopeID string) int {
	reply := make(chan int, 1)
	select {
	case h.counts <- countRequest{scopeID: scopeID, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// registerClient adds a client to a scope
func (h *Hub) registerClient(client *Client) {
	if h.scopes[client.scopeID] == nil {
		h.scopes[client.scopeID] = make(map[*Client]bool)
	}
	h.scopes[client.scopeID][client] = true

	logrus.WithField("scope", client.scopeID).Debugf("Client registered (total clients: %d)",
		len(h.scopes[client.scopeID]))
}

// unregisterClient removes a client from a scope
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.scopes[client.scopeID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.scopes, client.scopeID)
			}

			logrus.WithField("scope", client.scopeID).Debugf("Client unregistered (remaining clients: %d)",
				len(clients))
		}
	}
}

// broadcastMessage sends data to all clients in a scope
func (h *Hub) broadcastMessage(scopeID string, data []byte) {
	for client := range h.scopes[scopeID] {
		select {
		case client.send <- data:
		default:
			// Client's send channel is full, drop it
			h.unregisterClient(client)
		}
	}
}

// sendDirect writes to one client if it is still registered
func (h *Hub) sendDirect(client *Client, data []byte) {
	if !h.scopes[client.scopeID][client] {
		return
	}
	select {
	case client.send <- data:
	default:
		h.unregisterClient(client)
	}
}

func (h *Hub) closeAll() {
	for _, clients := range h.scopes {
		for client := range clients {
			h.unregisterClient(client)
		}
	}
}

// reply sends an error frame to this client only
func (c *Client) reply(err error) {
	data, mErr := json.Marshal(Frame{
		ScopeID: c.scopeID,
		Message: service.Message{Event: "error", Text: service.UserMessage(err), Timestamp: time.Now()},
		Code:    engine.Code(err),
	})
	if mErr != nil {
		return
	}
	select {
	case c.hub.direct <- directMessage{client: c, data: data}:
	case <-c.hub.done:
	}
}

// readPump reads guesses from the connection until it closes
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Warnf("WebSocket error: %v", err)
			}
			break
		}
		c.handleGuess(data)
	}
}

func (c *Client) handleGuess(data []byte) {
	if c.hub.onGuess == nil {
		return
	}

	var req GuessRequest
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), guessTimeout)
	defer cancel()
	if err := c.hub.onGuess(ctx, c.scopeID, req.Player, req.Text); err != nil {
		c.reply(err)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
