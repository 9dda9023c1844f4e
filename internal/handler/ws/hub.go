package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	applogger "HypeRadar/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is the frame pushed to dashboard clients.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(kind int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, data)
}

// Hub pushes every finished cycle report to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	l        *applogger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(allowedOrigins []string, l *applogger.Logger) *Hub {
	if l == nil {
		l = applogger.Nop()
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
		l:       l.With(applogger.String("component", "ws")),
		clients: make(map[*client]struct{}),
	}
}

var _ domrepo.CycleListener = (*Hub)(nil)

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/alerts", h.Serve)
}

// Serve upgrades the request and keeps the connection until the client
// goes away. Client frames other than pongs are ignored.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	cl := &client{conn: conn}
	h.add(cl)
	h.l.Debug("websocket client connected", applogger.String("remote", c.RealIP()), applogger.Int("clients", h.Len()))

	done := make(chan struct{})
	go h.pingLoop(cl, done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	h.remove(cl)
	return nil
}

func (h *Hub) pingLoop(cl *client, done <-chan struct{}) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := cl.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// OnCycle broadcasts the report. Clients that fail a write are dropped.
func (h *Hub) OnCycle(report *models.CycleReport) {
	h.Broadcast(Message{Type: "cycle", Payload: report})
}

func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.l.Error("marshal websocket message", applogger.String("type", msg.Type), applogger.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.write(websocket.TextMessage, data); err != nil {
			h.l.Debug("websocket write failed", applogger.Error(err))
			h.remove(cl)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for cl := range clients {
		_ = cl.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"))
		_ = cl.conn.Close()
	}
	return nil
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	delete(h.clients, cl)
	h.mu.Unlock()
	if ok {
		_ = cl.conn.Close()
	}
}
