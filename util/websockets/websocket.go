package websockets

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bwise1/bookgroups/pkg/logger"
	"github.com/bwise1/bookgroups/util/values"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes
// every connection.
func (manager *WebSocketManager) Run(ctx context.Context) {
	defer close(manager.done)

	for {
		select {
		case <-ctx.Done():
			manager.mu.Lock()
			for conn := range manager.clients {
				conn.Close()
				delete(manager.clients, conn)
			}
			manager.mu.Unlock()
			return

		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client.Conn] = client
			manager.mu.Unlock()

		case conn := <-manager.unregister:
			manager.mu.Lock()
			if _, exists := manager.clients[conn]; exists {
				delete(manager.clients, conn)
				conn.Close()
			}
			manager.mu.Unlock()

		case message := <-manager.broadcast:
			manager.mu.Lock()
			for conn, client := range manager.clients {
				if !client.wants(message.Key) {
					continue
				}
				if err := conn.WriteJSON(message); err != nil {
					conn.Close()
					delete(manager.clients, conn)
				}
			}
			manager.mu.Unlock()
		}
	}
}

// NotifyInvalidated tells subscribed clients that key was dropped from the
// cache so they can refetch. It never blocks; notices are dropped when the
// queue is full or the manager has stopped.
func (manager *WebSocketManager) NotifyInvalidated(key []string) {
	select {
	case manager.broadcast <- Message{Type: MsgTypeInvalidate, Key: append([]string(nil), key...)}:
	case <-manager.done:
	default:
		zap.L().Warn("invalidation notice dropped", zap.Strings("key", key))
	}
}

// Len returns the number of connected clients.
func (manager *WebSocketManager) Len() int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return len(manager.clients)
}

// HandleConnections upgrades the request and reads subscribe messages until
// the connection closes.
func (manager *WebSocketManager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{Conn: conn}
	if c, err := r.Cookie(values.SessionCookie); err == nil {
		client.SessionID = c.Value
	}

	select {
	case manager.register <- client:
	case <-manager.done:
		conn.Close()
		return
	}

	defer func() {
		select {
		case manager.unregister <- conn:
		case <-manager.done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var message Message
		if err := json.Unmarshal(msg, &message); err != nil {
			log.Debug("invalid websocket message", zap.Error(err))
			continue
		}

		if message.Type == MsgTypeSubscribe {
			manager.mu.Lock()
			if len(message.Key) > 0 {
				client.Prefixes = append(client.Prefixes, message.Key)
			}
			err := conn.WriteJSON(Message{Type: MsgTypeSubscribed, Key: message.Key})
			manager.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
